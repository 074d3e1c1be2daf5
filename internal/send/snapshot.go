package send

import (
	"github.com/shieldpay/shieldpay/internal/asset"
	"github.com/shieldpay/shieldpay/internal/txstatus"
)

// Snapshot is the presentation view of the engine at one instant.
type Snapshot struct {
	Mode            Mode            `json:"mode"`
	SenderAsset     string          `json:"sender_asset"`
	ReceiverAsset   string          `json:"receiver_asset"`
	Target          *string         `json:"target"`
	SenderBalance   *string         `json:"sender_balance"`
	ReceiverBalance *string         `json:"receiver_balance"`
	FeeBalance      *string         `json:"fee_balance"`
	MaxSendable     *string         `json:"max_sendable"`
	SenderPublic    string          `json:"sender_public_address,omitempty"`
	SenderPrivate   string          `json:"sender_private_address,omitempty"`
	Receiver        string          `json:"receiver,omitempty"`
	ReceiverInvalid bool            `json:"receiver_invalid"`
	SufficientFunds Tri             `json:"sufficient_funds"`
	CanPayFee       Tri             `json:"can_pay_fee"`
	OverExistential Tri             `json:"over_existential_deposit"`
	DepletesFee     bool            `json:"depletes_suggested_fee_balance"`
	ValidToSend     bool            `json:"valid_to_send"`
	Message         string          `json:"message,omitempty"`
	Status          txstatus.Status `json:"status"`
}

func display(b *asset.Balance) *string {
	if b == nil {
		return nil
	}
	s := b.DecimalString(-1, true)
	return &s
}

// Snapshot evaluates the current state against validation.
func (e *Engine) Snapshot() Snapshot {
	st := e.State()
	env := e.Env()
	p := e.cfg.Policy
	return Snapshot{
		Mode:            st.Mode(),
		SenderAsset:     st.SenderAssetType.Ticker(),
		ReceiverAsset:   st.ReceiverAssetType.Ticker(),
		Target:          display(st.SenderTarget),
		SenderBalance:   display(st.SenderCurrent),
		ReceiverBalance: display(st.ReceiverCurrent),
		FeeBalance:      display(st.SenderNativePublic),
		MaxSendable:     display(MaxSendable(st, p)),
		SenderPublic:    st.SenderPublicAddress,
		SenderPrivate:   st.SenderPrivateAddress,
		Receiver:        st.Receiver.Address,
		ReceiverInvalid: st.Receiver.Kind == ReceiverInvalid,
		SufficientFunds: HasSufficientFunds(st, p),
		CanPayFee:       CanPayFee(st, p),
		OverExistential: ReceiverOverExistentialDeposit(st),
		DepletesFee:     WouldDepleteSuggestedMinFeeBalance(st, p),
		ValidToSend:     ValidToSend(st, p, env),
		Message:         ValidationMessage(st, p, env),
		Status:          e.deps.Slot.Get(),
	}
}
