package pricing

import (
	"context"

	"github.com/fekuna/omnipos-pricing-service/internal/model"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing/dto"
)

// UseCase is the engine surface exposed to calling layers. Transport is the
// caller's concern.
type UseCase interface {
	CalculatePrice(ctx context.Context, req model.PriceRequest) (*model.PriceResult, error)
	CalculateBulkPrices(ctx context.Context, input *dto.BulkPriceInput) (*model.BulkResult, error)

	// GetApplicableRules is a read-only diagnostic listing rules that would
	// match the scope with default quantity/spend.
	GetApplicableRules(ctx context.Context, scope dto.RuleScope) ([]model.RuleSummary, error)

	// ClearCache drops all memoized results. Used for forced rule-update
	// propagation.
	ClearCache(ctx context.Context) (*dto.ClearCacheResult, error)

	// ValidateEngine reports configuration issues and runtime statistics.
	ValidateEngine(ctx context.Context) (*dto.ValidationReport, error)
}
