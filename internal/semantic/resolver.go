package semantic

import (
	"context"
	"strings"

	"go.abhg.dev/log/silog"

	"github.com/liminality-dev/resonate/internal/conflict"
)

// Resolver merges conflicted regions with the help of a [Client].
type Resolver struct {
	client Client
	log    *silog.Logger
}

// NewResolver builds a resolver around the given client.
func NewResolver(client Client, log *silog.Logger) *Resolver {
	if log == nil {
		log = silog.Nop()
	}
	return &Resolver{client: client, log: log}
}

// Resolve attempts to merge the first conflicted region of info.
//
// Refinement instructions from earlier attempts are passed along
// in order; their presence upgrades the request complexity.
// Every failure mode lands in the returned resolution;
// Resolve never panics and never returns a partial merge.
func (r *Resolver) Resolve(ctx context.Context, info *conflict.Info, refinements ...string) conflict.Resolution {
	if len(info.Regions) == 0 {
		return conflict.Failed(conflict.MethodSemantic, "no conflict regions to merge")
	}

	// Only the first region is merged;
	// later regions stay in the spliced content with their markers.
	region := info.Regions[0]

	complexity := Standard
	if len(refinements) > 0 {
		complexity = Complex
	}

	msgs := mergeMessages(
		info.Path,
		region.ContextBefore, region.Ours, region.Theirs, region.ContextAfter,
		refinements,
	)

	out, err := r.client.Generate(ctx, msgs, complexity)
	if err != nil {
		r.log.Warn("Semantic merge failed", "path", info.Path, "err", err)
		return conflict.Resolution{
			Method:      conflict.MethodSemantic,
			Explanation: "inference call failed",
			Err:         err,
		}
	}

	merged := stripFences(out)
	if strings.TrimSpace(merged) == "" {
		return conflict.Failed(conflict.MethodSemantic, "inference service returned nothing")
	}

	return conflict.Resolution{
		OK:            true,
		MergedContent: conflict.SpliceRegion(info.Raw, strings.Split(merged, "\n")),
		Method:        conflict.MethodSemantic,
		Explanation:   "merged by the inference service",
	}
}
