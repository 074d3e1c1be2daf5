package send

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/shieldpay/shieldpay/internal/asset"
)

var (
	dol = asset.Type{ID: 1, BaseTicker: "DOL", Decimals: 2, ExistentialDeposit: decimal.NewFromInt(10), Native: true}
	kar = asset.Type{ID: 8, BaseTicker: "KAR", Decimals: 3, ExistentialDeposit: decimal.NewFromInt(1)}
)

func bal(t asset.Type, atomic int64) *asset.Balance {
	b := asset.FromAtomic(t, atomic)
	return &b
}

func baseState() State {
	return State{
		SenderAssetType:      dol,
		ReceiverAssetType:    dol.TogglePrivate(),
		SenderPublicAddress:  "alice",
		SenderPrivateAddress: "zk-alice",
		Receiver:             AddressReceiver("zk-alice"),
	}
}

func TestModeTable(t *testing.T) {
	cases := []struct {
		sender, receiver bool
		want             Mode
		label            string
	}{
		{false, true, ToPrivate, "To Private"},
		{true, false, ToPublic, "To Public"},
		{true, true, PrivateTransfer, "Private Transfer"},
		{false, false, PublicTransfer, "Public Transfer"},
	}
	for _, tc := range cases {
		for _, a := range []asset.Type{dol, kar} {
			s, r := a.WithPrivate(tc.sender), kar.WithPrivate(tc.receiver)
			first := ModeOf(s, r)
			require.Equal(t, tc.want, first)
			require.Equal(t, first, ModeOf(s, r))
			require.Equal(t, tc.label, first.String())
		}
	}
}

func TestToggleSenderTwiceRestores(t *testing.T) {
	s := baseState()
	s.SenderCurrent = bal(dol, 100)

	once := s.ToggleSender()
	require.True(t, once.SenderAssetType.Private)
	require.Nil(t, once.SenderCurrent)
	require.Equal(t, PrivateTransfer, once.Mode())
	require.False(t, once.Receiver.IsSet())

	twice := once.ToggleSender()
	require.Equal(t, s.SenderAssetType, twice.SenderAssetType)
	require.Equal(t, s.ReceiverAssetType, twice.ReceiverAssetType)
	require.Equal(t, AddressReceiver("zk-alice"), twice.Receiver)
}

func TestToggleReceiverClearsReceiverBalance(t *testing.T) {
	s := baseState()
	s.ReceiverCurrent = bal(dol.TogglePrivate(), 5)

	next := s.ToggleReceiver()
	require.False(t, next.ReceiverAssetType.Private)
	require.Nil(t, next.ReceiverCurrent)
	require.Equal(t, PublicTransfer, next.Mode())
	require.False(t, next.Receiver.IsSet())
}

func TestSwapIsNoopForEqualPrivacy(t *testing.T) {
	s := baseState().ToggleReceiver()
	s.Receiver = AddressReceiver("bob")
	s.SenderCurrent = bal(dol, 1)
	require.Equal(t, s, s.Swap())

	both := baseState().ToggleSender()
	require.Equal(t, both, both.Swap())
}

func TestSwapFlipsDifferingPrivacy(t *testing.T) {
	s := baseState()
	swapped := s.Swap()
	require.Equal(t, ToPublic, swapped.Mode())
	require.Equal(t, AddressReceiver("alice"), swapped.Receiver)
	require.Equal(t, ToPrivate, swapped.Swap().Mode())
}

func TestTargetFollowsSenderPrivacy(t *testing.T) {
	for name, flip := range map[string]func(State) State{
		"toggle": State.ToggleSender,
		"swap":   State.Swap,
	} {
		t.Run(name, func(t *testing.T) {
			s := baseState().SetTarget(bal(dol, 10_000))
			next := flip(s)
			require.True(t, next.SenderAssetType.Private)
			require.NotNil(t, next.SenderTarget)
			require.True(t, next.SenderTarget.Type.Equal(next.SenderAssetType))
			require.True(t, next.SenderTarget.Atomic().Equal(decimal.NewFromInt(10_000)))

			next = next.SetSenderCurrentBalance(bal(next.SenderAssetType, 500_000))
			next = next.SetSenderNativePublicBalance(bal(dol, 1_000_000))
			require.Equal(t, True, HasSufficientFunds(next, flatFee))

			back := flip(next)
			require.True(t, back.SenderTarget.Type.Equal(dol))
		})
	}
}

func TestSetAssetTypeRescalesTarget(t *testing.T) {
	s := baseState()
	s.SenderTarget = bal(dol, 150)
	s.SenderCurrent = bal(dol, 1000)
	s.ReceiverCurrent = bal(dol.TogglePrivate(), 1000)

	next := s.SetAssetType(kar)
	require.Equal(t, kar, next.SenderAssetType)
	require.Equal(t, kar.TogglePrivate(), next.ReceiverAssetType)
	require.True(t, next.SenderTarget.Value().Equal(decimal.RequireFromString("1.5")))
	require.Equal(t, int64(1500), next.SenderTarget.Atomic().IntPart())
	require.Nil(t, next.SenderCurrent)
	require.Nil(t, next.ReceiverCurrent)

	same := baseState().ToggleReceiver().SetAssetType(kar)
	require.Equal(t, kar, same.ReceiverAssetType)
}

func TestDefaultReceiver(t *testing.T) {
	pub, priv := dol, dol.TogglePrivate()
	require.Equal(t, AddressReceiver("zk"), DefaultReceiver("zk", "pub", pub, priv))
	require.Equal(t, AddressReceiver("pub"), DefaultReceiver("zk", "pub", priv, pub))
	require.False(t, DefaultReceiver("zk", "pub", pub, pub).IsSet())
	require.False(t, DefaultReceiver("zk", "pub", priv, priv).IsSet())
	require.False(t, DefaultReceiver("", "pub", pub, priv).IsSet())
}

func TestBalanceUpdatesForOtherSelectionAreDiscarded(t *testing.T) {
	s := baseState()

	require.Nil(t, s.SetSenderCurrentBalance(bal(kar, 10)).SenderCurrent)
	require.Nil(t, s.SetSenderCurrentBalance(bal(dol.TogglePrivate(), 10)).SenderCurrent)
	require.Nil(t, s.SetReceiverCurrentBalance(bal(dol, 10)).ReceiverCurrent)

	fresh := s.SetSenderCurrentBalance(bal(dol, 10))
	require.Equal(t, int64(10), fresh.SenderCurrent.Atomic().IntPart())
	require.Nil(t, fresh.SetSenderCurrentBalance(nil).SenderCurrent)

	require.NotNil(t, s.SetReceiverCurrentBalance(bal(dol.TogglePrivate(), 3)).ReceiverCurrent)
}

func TestSetSenderPublicAccountKeepsExplicitReceiver(t *testing.T) {
	public := baseState().ToggleReceiver().SetReceiver(AddressReceiver("bob"))
	next := public.SetSenderPublicAccount("carol")
	require.Equal(t, "carol", next.SenderPublicAddress)
	require.Equal(t, AddressReceiver("bob"), next.Receiver)

	toPublic := baseState().Swap().SetSenderPublicAccount("carol")
	require.Equal(t, AddressReceiver("carol"), toPublic.Receiver)
}

func TestSetSenderPrivateAddressUsesNewAddress(t *testing.T) {
	s := baseState().SetSenderPrivateAddress("zk-new")
	require.Equal(t, AddressReceiver("zk-new"), s.Receiver)

	cleared := s.SetSenderPrivateAddress("")
	require.False(t, cleared.Receiver.IsSet())
}
