package xcm

import (
	"fmt"
	"math"
)

// Weight is the execution cost of a message in two dimensions: computation
// time and proof size. All arithmetic saturates.
type Weight struct {
	RefTime   uint64 `json:"ref_time"`
	ProofSize uint64 `json:"proof_size"`
}

// MaxWeight is the largest representable weight.
var MaxWeight = Weight{RefTime: math.MaxUint64, ProofSize: math.MaxUint64}

// NewWeight returns a weight with given components.
func NewWeight(refTime, proofSize uint64) Weight {
	return Weight{RefTime: refTime, ProofSize: proofSize}
}

// IsZero returns true if both components are zero.
func (w Weight) IsZero() bool {
	return w.RefTime == 0 && w.ProofSize == 0
}

// Add returns w + o, saturating each component.
func (w Weight) Add(o Weight) Weight {
	return Weight{
		RefTime:   saturatingAdd(w.RefTime, o.RefTime),
		ProofSize: saturatingAdd(w.ProofSize, o.ProofSize),
	}
}

// Sub returns w - o, saturating each component at zero.
func (w Weight) Sub(o Weight) Weight {
	return Weight{
		RefTime:   saturatingSub(w.RefTime, o.RefTime),
		ProofSize: saturatingSub(w.ProofSize, o.ProofSize),
	}
}

// Mul returns w * n, saturating each component.
func (w Weight) Mul(n uint64) Weight {
	return Weight{
		RefTime:   saturatingMul(w.RefTime, n),
		ProofSize: saturatingMul(w.ProofSize, n),
	}
}

// Min returns the component-wise minimum.
func (w Weight) Min(o Weight) Weight {
	if o.RefTime < w.RefTime {
		w.RefTime = o.RefTime
	}
	if o.ProofSize < w.ProofSize {
		w.ProofSize = o.ProofSize
	}
	return w
}

// AllLTE returns true if every component of w is lower than or equal to
// the same component of o.
func (w Weight) AllLTE(o Weight) bool {
	return w.RefTime <= o.RefTime && w.ProofSize <= o.ProofSize
}

// AnyGT returns true if any component of w is greater than the same
// component of o.
func (w Weight) AnyGT(o Weight) bool {
	return !w.AllLTE(o)
}

func (w Weight) String() string {
	return fmt.Sprintf("{ref_time: %d, proof_size: %d}", w.RefTime, w.ProofSize)
}

func saturatingAdd(a, b uint64) uint64 {
	if c := a + b; c >= a {
		return c
	}
	return math.MaxUint64
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

func saturatingMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	if c := a * b; c/b == a {
		return c
	}
	return math.MaxUint64
}

// WeightLimit is the weight purchased by BuyExecution.
type WeightLimit struct {
	Unlimited bool   `json:"unlimited"`
	Limit     Weight `json:"limit"`
}

// Unlimited is a weight limit covering the whole message.
var Unlimited = WeightLimit{Unlimited: true}

// Limited returns a weight limit of given weight.
func Limited(w Weight) WeightLimit {
	return WeightLimit{Limit: w}
}
