package grovedb

import (
	"github.com/mitchellh/mapstructure"

	"github.com/dashpay/grovedb-go/merk"
)

// Options configures a GroveDb. A caller composing GroveDB
// into a larger service threads these down from its own config file/env
// overlay via OptionsFromMap rather than GroveDB owning a flag-parsing or
// file-format opinion (§1 non-goal: no CLI).
type Options struct {
	// CostEnforcement and MaxCostPerOperation name a per-operation cost
	// budget. No operation in this module reads them: every operation
	// reports its cost.OperationCost and none is rejected for exceeding
	// MaxCostPerOperation.
	CostEnforcement    bool
	MaxCostPerOperation uint64

	// DefaultMaxHop bounds reference-chain resolution when a Reference's
	// own MaxHop is nil.
	DefaultMaxHop uint8

	// DecreaseLimitOnRangeWithNoSubElements is not read by the query
	// engine: a descended subquery that matched zero elements always
	// consumes one unit of the shared query Limit, whatever this holds.
	DecreaseLimitOnRangeWithNoSubElements bool

	// DefaultChunkByteLimit is a suggested byte_limit for
	// chunk.Producer.MultiChunkWithLimit. Nothing in this module reads it;
	// MultiChunkWithLimit always takes its byteLimit argument explicitly.
	DefaultChunkByteLimit int

	// DefaultRootKeyMode is the RootKeyMode newly-created top-level
	// subtrees open with.
	DefaultRootKeyMode merk.RootKeyMode
}

// DefaultOptions returns GroveDB's out-of-the-box configuration.
func DefaultOptions() Options {
	return Options{
		CostEnforcement:                       false,
		MaxCostPerOperation:                   0,
		DefaultMaxHop:                         8,
		DecreaseLimitOnRangeWithNoSubElements: true,
		DefaultChunkByteLimit:                 4 << 20,
		DefaultRootKeyMode:                    merk.Standalone,
	}
}

// OptionsFromMap decodes m (as would come from a parsed config file or env
// overlay) over DefaultOptions(), using mapstructure so a caller can hand
// GroveDB a bare map[string]any without it owning a file format.
func OptionsFromMap(m map[string]any) (Options, error) {
	opts := DefaultOptions()
	if err := mapstructure.Decode(m, &opts); err != nil {
		return Options{}, newErr("OptionsFromMap", KindInvalidParameter, err)
	}
	return opts, nil
}
