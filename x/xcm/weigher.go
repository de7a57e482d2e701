package xcm

import (
	"github.com/iov-one/settle/errors"
)

// Weigher computes the upper bound of the weight of a message. Weighing
// is deterministic: the same message always has the same weight.
type Weigher interface {
	// Weight returns the weight of the whole message.
	Weight(Message) (Weight, error)
	// InstructionWeight returns the weight charged for a single
	// instruction.
	InstructionWeight(Instruction) Weight
}

// FixedWeigher charges the same weight for every instruction.
type FixedWeigher struct {
	Unit            Weight
	MaxInstructions int
}

var _ Weigher = FixedWeigher{}

// Weight implements Weigher.
func (w FixedWeigher) Weight(m Message) (Weight, error) {
	if w.MaxInstructions > 0 && len(m.Instructions) > w.MaxInstructions {
		return Weight{}, errors.Wrapf(ErrTooManyInstructions, "%d instructions", len(m.Instructions))
	}
	return w.Unit.Mul(uint64(len(m.Instructions))), nil
}

// InstructionWeight implements Weigher.
func (w FixedWeigher) InstructionWeight(Instruction) Weight {
	return w.Unit
}

// TableWeigher charges a constant weight per instruction kind.
type TableWeigher struct {
	Weights         map[InstructionKind]Weight
	MaxInstructions int
}

var _ Weigher = TableWeigher{}

// DefaultWeights are benchmarked per instruction kind constants.
var DefaultWeights = map[InstructionKind]Weight{
	KindReserveAssetDeposited: NewWeight(200000000, 0),
	KindWithdrawAsset:         NewWeight(200000000, 3593),
	KindBuyExecution:          NewWeight(3000000, 0),
	KindDepositAsset:          NewWeight(300000000, 3593),
	KindRefundSurplus:         NewWeight(3000000, 0),
	KindClearOrigin:           NewWeight(1000000, 0),
}

// Weight implements Weigher.
func (w TableWeigher) Weight(m Message) (Weight, error) {
	if w.MaxInstructions > 0 && len(m.Instructions) > w.MaxInstructions {
		return Weight{}, errors.Wrapf(ErrTooManyInstructions, "%d instructions", len(m.Instructions))
	}
	var total Weight
	for i, instr := range m.Instructions {
		iw, ok := w.Weights[instr.Kind()]
		if !ok {
			return Weight{}, errors.Wrapf(ErrWeightNotComputable, "instruction %d (%s)", i, instr.Kind())
		}
		total = total.Add(iw)
	}
	return total, nil
}

// InstructionWeight implements Weigher. An instruction kind without a
// table entry never fits in a budget.
func (w TableWeigher) InstructionWeight(instr Instruction) Weight {
	if iw, ok := w.Weights[instr.Kind()]; ok {
		return iw
	}
	return MaxWeight
}
