package xcm

import "github.com/iov-one/settle/errors"

var (
	// ErrTooExpensive is returned when the fees offered do not cover the
	// price of the requested weight.
	ErrTooExpensive = errors.Register(200, "too expensive")
	// ErrWeightLimitReached is returned when a message or an instruction
	// does not fit in the weight budget.
	ErrWeightLimitReached = errors.Register(201, "weight limit reached")
	// ErrBarrier is returned when an untrusted origin does not pay for
	// the execution of its message.
	ErrBarrier = errors.Register(202, "barrier")
	// ErrUntrustedReserveLocation is returned when an asset is deposited
	// by a location that is not its reserve.
	ErrUntrustedReserveLocation = errors.Register(203, "untrusted reserve location")
	// ErrBadOrigin is returned when an instruction requires an origin
	// that was cleared.
	ErrBadOrigin = errors.Register(204, "bad origin")
	// ErrNotHoldingFees is returned when the fee asset is not in the
	// holding register.
	ErrNotHoldingFees = errors.Register(205, "not holding fees")
	// ErrTooManyInstructions is returned for messages above the
	// instruction limit.
	ErrTooManyInstructions = errors.Register(206, "too many instructions")
	// ErrWeightNotComputable is returned by a weigher that cannot weigh a
	// message.
	ErrWeightNotComputable = errors.Register(207, "weight not computable")
)
