package route

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/croswell/arb-scanner/pkg/types"
)

// Extract flattens the provider's split tree into one step per hop.
// Only the primary alternative route (outer index 0) is inspected. Within a
// hop the split with the largest part wins; on a tie the earliest split keeps
// the win.
func Extract(tree types.SplitTree) types.Route {
	if len(tree) == 0 {
		return types.Route{}
	}

	primary := tree[0]
	r := make(types.Route, 0, len(primary))
	for _, hop := range primary {
		if len(hop) == 0 {
			continue
		}
		best := 0
		for i := 1; i < len(hop); i++ {
			if hop[i].Part > hop[best].Part {
				best = i
			}
		}
		r = append(r, types.RouteStep{
			Name:           hop[best].Name,
			ToTokenAddress: common.HexToAddress(hop[best].ToTokenAddress),
		})
	}
	return r
}

// Normalizer rewrites the provider's native-coin placeholder address to its
// wrapped ERC-20 form so route steps match registry entries downstream
type Normalizer struct {
	Native  common.Address
	Wrapped common.Address
}

// Apply returns a copy of r with the native address substituted. A nil
// route (failed leg) passes through unchanged.
func (n *Normalizer) Apply(r types.Route) types.Route {
	if n == nil || r == nil {
		return r
	}
	out := make(types.Route, len(r))
	for i, step := range r {
		if step.ToTokenAddress == n.Native {
			step.ToTokenAddress = n.Wrapped
		}
		out[i] = step
	}
	return out
}
