package resolver

import "github.com/fekuna/omnipos-pricing-service/internal/model"

// TieBreakPolicy decides between rules sharing the same priority level and
// the same item-scope specificity.
type TieBreakPolicy string

const (
	// TieBreakMostRecent prefers the most recently modified rule (default).
	TieBreakMostRecent TieBreakPolicy = "most_recent"
	// TieBreakLowestID prefers the lexicographically smallest rule id.
	// Useful when fixtures need a stable winner independent of edit times.
	TieBreakLowestID TieBreakPolicy = "lowest_id"
)

type Resolver struct {
	policy TieBreakPolicy
}

func New(policy TieBreakPolicy) *Resolver {
	if policy != TieBreakLowestID {
		policy = TieBreakMostRecent
	}
	return &Resolver{policy: policy}
}

// Resolve picks exactly one winner from the matched set, or nil when nothing
// matched. Ranking: priority level (8 beats 1), then item-scope specificity
// (item_code > item_group > brand > none), then the tie-break policy.
func (r *Resolver) Resolve(matches []model.PricingRule) *model.PricingRule {
	if len(matches) == 0 {
		return nil
	}

	best := &matches[0]
	for i := 1; i < len(matches); i++ {
		if r.beats(&matches[i], best) {
			best = &matches[i]
		}
	}
	return best
}

func (r *Resolver) beats(a, b *model.PricingRule) bool {
	if ap, bp := a.EffectivePriority(), b.EffectivePriority(); ap != bp {
		return ap > bp
	}
	if as, bs := a.ItemScopeSpecificity(), b.ItemScopeSpecificity(); as != bs {
		return as > bs
	}
	switch r.policy {
	case TieBreakLowestID:
		return a.ID < b.ID
	default:
		return a.Modified.After(b.Modified)
	}
}
