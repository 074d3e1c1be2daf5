package infra

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"

	"github.com/shieldpay/shieldpay/internal/account"
	"github.com/shieldpay/shieldpay/internal/address"
	"github.com/shieldpay/shieldpay/internal/asset"
	"github.com/shieldpay/shieldpay/internal/chain"
	"github.com/shieldpay/shieldpay/internal/wallet"
)

const (
	devnetPrefix  = 42
	devnetSource  = "devnet"
	devnetFunding = 1000
)

// Devnet is an in-process network with funded demo accounts, used when the
// service runs without a node.
type Devnet struct {
	Chain    *chain.InMemory
	Wallet   *wallet.Simulated
	Accounts []account.Account
}

// NewDevnet seeds every named account with public funds of each asset. The
// first name also owns the simulated shielded wallet, which starts with the
// same holdings in private form.
func NewDevnet(catalog *asset.Catalog, names []string, walletVersion string) (*Devnet, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("devnet needs at least one account")
	}

	c := chain.NewInMemory(catalog)
	accounts := make([]account.Account, 0, len(names))
	for _, name := range names {
		key := blake2b.Sum256([]byte(devnetSource + "/public/" + name))
		addr, err := address.EncodePublic(devnetPrefix, key[:])
		if err != nil {
			return nil, fmt.Errorf("devnet account %s: %w", name, err)
		}
		for _, t := range catalog.All(false) {
			chain.Fund(c, addr, t.ID, wholeUnits(t, devnetFunding))
		}
		accounts = append(accounts, account.Account{
			Address: addr,
			Name:    name,
			Source:  devnetSource,
			Signer:  chain.StaticSigner{Addr: addr},
		})
	}

	zkKey := blake2b.Sum256([]byte(devnetSource + "/private/" + names[0]))
	zkAddr, err := address.EncodePrivate(zkKey[:])
	if err != nil {
		return nil, fmt.Errorf("devnet private address: %w", err)
	}
	for _, t := range catalog.All(true) {
		chain.FundShielded(c, zkAddr, t.ID, wholeUnits(t, devnetFunding))
	}

	return &Devnet{
		Chain:    c,
		Wallet:   wallet.NewSimulated(c, catalog, zkAddr, walletVersion),
		Accounts: accounts,
	}, nil
}

// Source names the account source devnet accounts are registered under.
func (d *Devnet) Source() string {
	return devnetSource
}

func wholeUnits(t asset.Type, n int64) decimal.Decimal {
	return decimal.New(n, t.Decimals)
}
