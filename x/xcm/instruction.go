package xcm

import (
	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
)

// InstructionKind identifies the variant of an instruction. The values are
// part of the wire format and must not change.
type InstructionKind uint32

const (
	KindReserveAssetDeposited InstructionKind = 1
	KindWithdrawAsset         InstructionKind = 2
	KindBuyExecution          InstructionKind = 3
	KindDepositAsset          InstructionKind = 4
	KindRefundSurplus         InstructionKind = 5
	KindClearOrigin           InstructionKind = 6
)

var kindNames = map[InstructionKind]string{
	KindReserveAssetDeposited: "ReserveAssetDeposited",
	KindWithdrawAsset:         "WithdrawAsset",
	KindBuyExecution:          "BuyExecution",
	KindDepositAsset:          "DepositAsset",
	KindRefundSurplus:         "RefundSurplus",
	KindClearOrigin:           "ClearOrigin",
}

func (k InstructionKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "Unknown"
}

// Instruction is a single step of a message. The set of implementations
// is closed.
type Instruction interface {
	Kind() InstructionKind
	Validate() error
	isInstruction()
}

// ReserveAssetDeposited notes that the origin, being the reserve of the
// assets, deposited them on behalf of this domain. The assets are placed
// in the holding register.
type ReserveAssetDeposited struct {
	Assets []Asset
}

// WithdrawAsset takes assets from the account of the origin into the
// holding register.
type WithdrawAsset struct {
	Assets []Asset
}

// BuyExecution pays for the weight of the message with Fees taken from the
// holding register.
type BuyExecution struct {
	Fees        Asset
	WeightLimit WeightLimit
}

// DepositAsset moves the selected assets from the holding register into
// the account of the beneficiary.
type DepositAsset struct {
	Filter      AssetFilter
	Beneficiary settle.Address
}

// RefundSurplus puts the price of the purchased but unusable weight back
// into the holding register.
type RefundSurplus struct{}

// ClearOrigin drops the origin. Instructions that act on behalf of the
// origin fail afterwards.
type ClearOrigin struct{}

var (
	_ Instruction = (*ReserveAssetDeposited)(nil)
	_ Instruction = (*WithdrawAsset)(nil)
	_ Instruction = (*BuyExecution)(nil)
	_ Instruction = (*DepositAsset)(nil)
	_ Instruction = (*RefundSurplus)(nil)
	_ Instruction = (*ClearOrigin)(nil)
)

func (*ReserveAssetDeposited) Kind() InstructionKind { return KindReserveAssetDeposited }
func (*WithdrawAsset) Kind() InstructionKind         { return KindWithdrawAsset }
func (*BuyExecution) Kind() InstructionKind          { return KindBuyExecution }
func (*DepositAsset) Kind() InstructionKind          { return KindDepositAsset }
func (*RefundSurplus) Kind() InstructionKind         { return KindRefundSurplus }
func (*ClearOrigin) Kind() InstructionKind           { return KindClearOrigin }

func (*ReserveAssetDeposited) isInstruction() {}
func (*WithdrawAsset) isInstruction()         {}
func (*BuyExecution) isInstruction()          {}
func (*DepositAsset) isInstruction()          {}
func (*RefundSurplus) isInstruction()         {}
func (*ClearOrigin) isInstruction()           {}

func (i *ReserveAssetDeposited) Validate() error {
	return validateAssets(i.Assets)
}

func (i *WithdrawAsset) Validate() error {
	return validateAssets(i.Assets)
}

func (i *BuyExecution) Validate() error {
	return errors.AppendField(nil, "Fees", i.Fees.Validate())
}

func (i *DepositAsset) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Beneficiary", i.Beneficiary.Validate())
	if !i.Filter.All {
		errs = errors.AppendField(errs, "Filter", validateAssets(i.Filter.Definite))
	}
	return errs
}

func (*RefundSurplus) Validate() error { return nil }
func (*ClearOrigin) Validate() error   { return nil }

func validateAssets(assets []Asset) error {
	if len(assets) == 0 {
		return errors.Wrap(errors.ErrEmpty, "assets")
	}
	for i, a := range assets {
		if err := a.Validate(); err != nil {
			return errors.Wrapf(err, "asset %d", i)
		}
	}
	return nil
}

// Message is an ordered sequence of instructions.
type Message struct {
	Instructions []Instruction
}

// NewMessage returns a message of given instructions.
func NewMessage(instructions ...Instruction) Message {
	return Message{Instructions: instructions}
}

// Validate checks the structure of the message and of every instruction.
func (m Message) Validate(maxInstructions int) error {
	if len(m.Instructions) == 0 {
		return errors.Wrap(errors.ErrEmpty, "message")
	}
	if maxInstructions > 0 && len(m.Instructions) > maxInstructions {
		return errors.Wrapf(ErrTooManyInstructions, "%d instructions, limit is %d", len(m.Instructions), maxInstructions)
	}
	for i, instr := range m.Instructions {
		if instr == nil {
			return errors.Wrapf(errors.ErrInvalidMsg, "instruction %d is nil", i)
		}
		if err := instr.Validate(); err != nil {
			return errors.Wrapf(err, "instruction %d (%s)", i, instr.Kind())
		}
	}
	return nil
}
