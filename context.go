package settle

import (
	"context"
	"regexp"
	"time"

	"github.com/iov-one/settle/errors"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/log"
)

var (
	// DefaultLogger is used for all context that have not
	// set anything themselves
	DefaultLogger = log.NewNopLogger()

	// IsValidChainID is the RegExp to ensure valid chain IDs
	IsValidChainID = regexp.MustCompile(`^[a-zA-Z0-9_\-]{6,20}$`).MatchString
)

type contextKey int // local to the settle module

const (
	contextKeyLogger contextKey = iota
	contextKeyBlock
)

// WithLogger sets the logger for this context.
func WithLogger(ctx context.Context, logger log.Logger) context.Context {
	return context.WithValue(ctx, contextKeyLogger, logger)
}

// GetLogger returns the currently set logger, or DefaultLogger if none was
// set.
func GetLogger(ctx context.Context) log.Logger {
	if ctx == nil {
		return DefaultLogger
	}
	if l, ok := ctx.Value(contextKeyLogger).(log.Logger); ok {
		return l
	}
	return DefaultLogger
}

// WithLogInfo accepts keyvalue pairs, and returns another
// context like this, after passing all the keyvals to the
// Logger
func WithLogInfo(ctx context.Context, keyvals ...interface{}) context.Context {
	return WithLogger(ctx, GetLogger(ctx).With(keyvals...))
}

// BlockInfo describes the block that is currently processed.
type BlockInfo struct {
	header  abci.Header
	chainID string
}

// NewBlockInfo creates a BlockInfo struct with current context of where it
// is being executed.
func NewBlockInfo(header abci.Header, chainID string) (BlockInfo, error) {
	if !IsValidChainID(chainID) {
		return BlockInfo{}, errors.Wrap(errors.ErrInvalidInput, "chainID invalid")
	}
	return BlockInfo{header: header, chainID: chainID}, nil
}

func (b BlockInfo) Header() abci.Header {
	return b.header
}

func (b BlockInfo) ChainID() string {
	return b.chainID
}

func (b BlockInfo) Height() int64 {
	return b.header.Height
}

func (b BlockInfo) BlockTime() time.Time {
	return b.header.Time
}

// Author returns the address of the block producer.
func (b BlockInfo) Author() Address {
	if len(b.header.ProposerAddress) == 0 {
		return nil
	}
	return Address(b.header.ProposerAddress).Clone()
}

// WithBlockInfo attaches the information about the currently processed block
// to the context.
func WithBlockInfo(ctx context.Context, info BlockInfo) context.Context {
	return context.WithValue(ctx, contextKeyBlock, info)
}

// GetBlockInfo returns the block information stored in the context.
func GetBlockInfo(ctx context.Context) (BlockInfo, bool) {
	if ctx == nil {
		return BlockInfo{}, false
	}
	info, ok := ctx.Value(contextKeyBlock).(BlockInfo)
	return info, ok
}

// GetHeight returns the height of the currently processed block. Zero is
// returned when no block information is available.
func GetHeight(ctx context.Context) int64 {
	info, ok := GetBlockInfo(ctx)
	if !ok {
		return 0
	}
	return info.Height()
}
