package chain

import (
	"github.com/shopspring/decimal"

	"github.com/shieldpay/shieldpay/internal/asset"
)

// SeedBalance is a test helper that seeds the public balance of an account on the in-memory chain.
func SeedBalance(c *InMemory, address string, id asset.ID, amount int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.public.set(address, id, decimal.NewFromInt(amount))
}

// SeedShielded seeds the shielded balance held by a private address.
func SeedShielded(c *InMemory, privateAddress string, id asset.ID, amount int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shielded.set(privateAddress, id, decimal.NewFromInt(amount))
}

// Fund sets the public balance of an account to an atomic amount.
func Fund(c *InMemory, address string, id asset.ID, atomic decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.public.set(address, id, atomic)
}

// FundShielded sets the shielded balance of a private address to an atomic amount.
func FundShielded(c *InMemory, privateAddress string, id asset.ID, atomic decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shielded.set(privateAddress, id, atomic)
}
