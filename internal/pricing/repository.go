package pricing

import (
	"context"

	"github.com/fekuna/omnipos-pricing-service/internal/model"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing/dto"
)

// Repository is the narrow read interface onto the external rule store. Rule
// definitions are owned elsewhere; the engine only fetches immutable
// snapshots per calculation.
type Repository interface {
	// FetchActiveRules returns active candidate rules for the scope hint,
	// in arbitrary order. Matching and ranking are the engine's job.
	FetchActiveRules(ctx context.Context, scope dto.RuleScope) ([]model.PricingRule, error)

	// FindItemInfo resolves item_group/brand/tax_rate for scope matching.
	// Returns nil when the item is unknown.
	FindItemInfo(ctx context.Context, itemCode string) (*model.ItemInfo, error)

	// FindCustomerInfo resolves customer_group/territory. Returns nil when
	// the customer is unknown.
	FindCustomerInfo(ctx context.Context, customer string) (*model.CustomerInfo, error)
}

// RuleSnapshot is the last-known-good rule cache consulted when the primary
// store is unreachable. rulecache.Snapshot is the redis-backed implementation.
type RuleSnapshot interface {
	// Get returns the cached rule set for the scope, or nil on miss.
	Get(ctx context.Context, scope dto.RuleScope) []model.PricingRule

	// Set replaces the cached rule set for the scope. Best effort: failures
	// are swallowed by the implementation.
	Set(ctx context.Context, scope dto.RuleScope, rules []model.PricingRule)

	// Clear drops every snapshot and returns the number of keys removed.
	Clear(ctx context.Context) int
}
