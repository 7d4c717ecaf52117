package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fekuna/omnipos-pricing-service/internal/model"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing/calculator"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing/dto"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing/matcher"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing/resolver"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing/resultcache"
	"github.com/fekuna/omnipos-pricing-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Config tunes the engine. Zero values fall back to the defaults below.
type Config struct {
	CacheTTL             time.Duration
	CacheMaxEntries      int
	MaxBulkItems         int
	BulkWorkers          int
	RuleEvalTimeout      time.Duration
	SingleCalcThreshold  time.Duration
	BulkCalcThreshold    time.Duration
	CacheLookupThreshold time.Duration
	TieBreakPolicy       resolver.TieBreakPolicy
}

func (c *Config) setDefaults() {
	if c.CacheTTL <= 0 {
		c.CacheTTL = 300 * time.Second
	}
	if c.CacheMaxEntries <= 0 {
		c.CacheMaxEntries = 1000
	}
	if c.MaxBulkItems <= 0 {
		c.MaxBulkItems = 50
	}
	if c.BulkWorkers <= 0 {
		c.BulkWorkers = 8
	}
	if c.RuleEvalTimeout <= 0 {
		c.RuleEvalTimeout = 200 * time.Millisecond
	}
	if c.SingleCalcThreshold <= 0 {
		c.SingleCalcThreshold = 500 * time.Millisecond
	}
	if c.BulkCalcThreshold <= 0 {
		c.BulkCalcThreshold = 1000 * time.Millisecond
	}
	if c.CacheLookupThreshold <= 0 {
		c.CacheLookupThreshold = 100 * time.Millisecond
	}
}

// snapshotWriteTimeout bounds a background snapshot write so a slow redis
// cannot hold the write slot indefinitely.
const snapshotWriteTimeout = 2 * time.Second

type pricingUseCase struct {
	instanceID  string
	cfg         Config
	repo        pricing.Repository
	snapshot    pricing.RuleSnapshot // nil disables the last-known-good fallback
	snapshotSem chan struct{}        // single in-flight background snapshot write
	results     *resultcache.Cache
	matcher     *matcher.Matcher
	resolver    *resolver.Resolver
	calc        *calculator.Calculator
	logger      logger.ZapLogger
}

func NewPricingUseCase(repo pricing.Repository, snapshot pricing.RuleSnapshot, cfg Config, log logger.ZapLogger) pricing.UseCase {
	cfg.setDefaults()
	return &pricingUseCase{
		instanceID:  uuid.New().String(),
		cfg:         cfg,
		repo:        repo,
		snapshot:    snapshot,
		snapshotSem: make(chan struct{}, 1),
		results:     resultcache.New(cfg.CacheTTL, cfg.CacheMaxEntries),
		matcher:     matcher.New(log),
		resolver:    resolver.New(cfg.TieBreakPolicy),
		calc:        calculator.New(),
		logger:      log,
	}
}

func (uc *pricingUseCase) CalculatePrice(ctx context.Context, req model.PriceRequest) (*model.PriceResult, error) {
	start := time.Now()

	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	// Resolve scope discriminators once per calculation.
	item, err := uc.repo.FindItemInfo(ctx, req.ItemCode)
	if err != nil {
		// Degrade to unscoped matching rather than fail the sale.
		uc.logger.Warn("item info lookup failed", zap.String("item_code", req.ItemCode), zap.Error(err))
		item = &model.ItemInfo{ItemCode: req.ItemCode}
	}
	if item == nil {
		return nil, errors.Wrapf(pricing.ErrInvalidItemCode, "item %q", req.ItemCode)
	}
	if req.TaxRate == 0 {
		req.TaxRate = item.TaxRate
	}

	var cust model.CustomerInfo
	if req.Customer != "" {
		if info, err := uc.repo.FindCustomerInfo(ctx, req.Customer); err != nil {
			uc.logger.Warn("customer info lookup failed", zap.String("customer", req.Customer), zap.Error(err))
		} else if info != nil {
			cust = *info
		}
	}

	key := resultcache.BuildKey(req, map[string]string{
		"item_group":     item.ItemGroup,
		"brand":          item.Brand,
		"customer_group": cust.CustomerGroup,
		"territory":      cust.Territory,
	})

	lookupStart := time.Now()
	if cached, ok := uc.results.Get(key); ok {
		cached.CacheHit = true
		cached.CalculationTimeMs = elapsedMs(start)
		return &cached, nil
	}
	if lookup := time.Since(lookupStart); lookup > uc.cfg.CacheLookupThreshold {
		uc.logger.Warn("cache lookup slow", zap.Duration("elapsed", lookup), zap.String("key", key))
	}

	rules, err := uc.fetchRules(ctx, dto.RuleScope{
		ItemCode:  req.ItemCode,
		ItemGroup: item.ItemGroup,
		Brand:     item.Brand,
		Customer:  req.Customer,
		BranchID:  req.BranchID,
	})
	if err != nil {
		return nil, err
	}

	mc := matcher.MatchContext{
		Request:       req,
		ItemGroup:     item.ItemGroup,
		Brand:         item.Brand,
		CustomerGroup: cust.CustomerGroup,
		Territory:     cust.Territory,
	}
	matched := uc.matcher.Match(rules, mc)
	winner := uc.resolver.Resolve(matched)

	res := uc.calc.Compute(winner, req)
	res.CalculationTimeMs = elapsedMs(start)
	if elapsed := time.Since(start); elapsed > uc.cfg.SingleCalcThreshold {
		res.PerformanceWarning = "price calculation slower than expected"
		uc.logger.Warn("price calculation slow",
			zap.String("item_code", req.ItemCode),
			zap.Duration("elapsed", elapsed),
		)
	}

	uc.results.Put(key, res)
	return &res, nil
}

// fetchRules reads the store under a bounded timeout, falling back to the
// last-known-good snapshot when the store is unreachable. Structurally
// invalid rules are skipped with a warning, never fatal.
func (uc *pricingUseCase) fetchRules(ctx context.Context, scope dto.RuleScope) ([]model.PricingRule, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, uc.cfg.RuleEvalTimeout)
	defer cancel()

	rules, err := uc.repo.FetchActiveRules(fetchCtx, scope)
	if err != nil {
		uc.logger.Error("rule fetch failed, trying snapshot", zap.Error(err))
		if uc.snapshot != nil {
			if cached := uc.snapshot.Get(ctx, scope); cached != nil {
				return cached, nil
			}
		}
		return nil, errors.Wrapf(pricing.ErrRepositoryUnavailable, "%v", err)
	}

	valid := rules[:0]
	for i := range rules {
		if verr := rules[i].Validate(); verr != nil {
			uc.logger.Warn("skipping invalid pricing rule",
				zap.String("rule_id", rules[i].ID),
				zap.Error(verr),
			)
			continue
		}
		valid = append(valid, rules[i])
	}

	if uc.snapshot != nil {
		select {
		case uc.snapshotSem <- struct{}{}:
			snap := make([]model.PricingRule, len(valid))
			copy(snap, valid)
			go func() {
				defer func() { <-uc.snapshotSem }()
				wctx, cancel := context.WithTimeout(context.Background(), snapshotWriteTimeout)
				defer cancel()
				uc.snapshot.Set(wctx, scope, snap)
			}()
		default:
			// A write is already in flight; the snapshot is best effort.
		}
	}
	return valid, nil
}

func (uc *pricingUseCase) CalculateBulkPrices(ctx context.Context, input *dto.BulkPriceInput) (*model.BulkResult, error) {
	start := time.Now()

	if input == nil || len(input.Items) == 0 {
		return nil, errors.Wrap(pricing.ErrMissingParameters, "bulk request has no items")
	}
	if len(input.Items) > uc.cfg.MaxBulkItems {
		return nil, errors.Wrapf(pricing.ErrBatchSizeExceeded,
			"%d items exceeds maximum of %d", len(input.Items), uc.cfg.MaxBulkItems)
	}

	// Shared transaction amount: explicit, or the cart subtotal.
	totalAmount := input.TotalAmount
	if totalAmount == 0 {
		for _, it := range input.Items {
			qty := it.Quantity
			if qty <= 0 {
				qty = 1
			}
			totalAmount += it.BasePrice * float64(qty)
		}
	}

	items := make([]model.PriceRequest, len(input.Items))
	for i, it := range input.Items {
		if it.Customer == "" {
			it.Customer = input.Customer
		}
		if it.BranchID == "" {
			it.BranchID = input.BranchID
		}
		it.TotalAmount = totalAmount
		items[i] = it
	}

	// Fan out across a bounded pool; results land at their request index so
	// batch order is preserved.
	out := make([]model.BulkItemResult, len(items))
	workers := uc.cfg.BulkWorkers
	if workers > len(items) {
		workers = len(items)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = uc.calculateItem(ctx, items[i])
			}
		}()
	}
	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	result := &model.BulkResult{Items: out}
	ruleSet := map[string]struct{}{}
	var totalTime float64
	for i := range out {
		if out[i].Error != "" {
			result.ItemsFailed++
			continue
		}
		result.ItemsProcessed++
		result.TotalOriginal += out[i].BasePrice
		result.TotalFinal += out[i].FinalPrice
		result.TotalSavings += out[i].DiscountAmount
		totalTime += out[i].CalculationTimeMs
		if out[i].RuleApplied != "" {
			ruleSet[out[i].RuleApplied] = struct{}{}
		}
	}
	if result.ItemsProcessed == 0 {
		return nil, errors.Wrap(pricing.ErrConfigurationError, "no items could be calculated")
	}

	result.TotalOriginal = calculator.RoundMoney(result.TotalOriginal)
	result.TotalFinal = calculator.RoundMoney(result.TotalFinal)
	result.TotalSavings = calculator.RoundMoney(result.TotalSavings)
	result.AvgCalculationTimeMs = totalTime / float64(result.ItemsProcessed)
	result.CalculationTimeMs = elapsedMs(start)

	for name := range ruleSet {
		result.RulesApplied = append(result.RulesApplied, name)
	}
	sort.Strings(result.RulesApplied)

	if elapsed := time.Since(start); elapsed > uc.cfg.BulkCalcThreshold {
		result.PerformanceWarning = "bulk price calculation slower than expected"
		uc.logger.Warn("bulk calculation slow",
			zap.Int("items", len(items)),
			zap.Duration("elapsed", elapsed),
		)
	}
	return result, nil
}

// calculateItem recovers per-item failures locally: the item is marked failed
// and carries the unchanged base price, and the batch continues.
func (uc *pricingUseCase) calculateItem(ctx context.Context, req model.PriceRequest) model.BulkItemResult {
	res, err := uc.CalculatePrice(ctx, req)
	if err != nil {
		uc.logger.Error("bulk item calculation failed",
			zap.String("item_code", req.ItemCode),
			zap.Error(err),
		)
		fallback := uc.calc.Compute(nil, req)
		return model.BulkItemResult{PriceResult: fallback, Error: err.Error()}
	}
	return model.BulkItemResult{PriceResult: *res}
}

func (uc *pricingUseCase) GetApplicableRules(ctx context.Context, scope dto.RuleScope) ([]model.RuleSummary, error) {
	mc := matcher.MatchContext{
		Request: model.PriceRequest{
			ItemCode: scope.ItemCode,
			Quantity: 1,
			Customer: scope.Customer,
			BranchID: scope.BranchID,
		},
		ItemGroup: scope.ItemGroup,
		Brand:     scope.Brand,
	}

	if scope.ItemCode != "" {
		item, err := uc.repo.FindItemInfo(ctx, scope.ItemCode)
		if err == nil && item == nil {
			return nil, errors.Wrapf(pricing.ErrInvalidItemCode, "item %q", scope.ItemCode)
		}
		if item != nil {
			mc.ItemGroup = item.ItemGroup
			mc.Brand = item.Brand
		}
	}

	rules, err := uc.fetchRules(ctx, scope)
	if err != nil {
		return nil, err
	}

	matched := uc.matcher.Match(rules, mc)
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].EffectivePriority() > matched[j].EffectivePriority()
	})

	summaries := make([]model.RuleSummary, 0, len(matched))
	for i := range matched {
		summaries = append(summaries, matched[i].Summary())
	}
	return summaries, nil
}

func (uc *pricingUseCase) ClearCache(ctx context.Context) (*dto.ClearCacheResult, error) {
	removed := uc.results.Clear()
	if uc.snapshot != nil {
		removed += uc.snapshot.Clear(ctx)
	}
	uc.logger.Info("pricing cache cleared", zap.Int("entries", removed))
	return &dto.ClearCacheResult{EntriesCleared: removed}, nil
}

func (uc *pricingUseCase) ValidateEngine(ctx context.Context) (*dto.ValidationReport, error) {
	var issues []string

	rules, err := uc.fetchRules(ctx, dto.RuleScope{})
	if err != nil {
		issues = append(issues, fmt.Sprintf("rule repository unreachable: %v", err))
	}
	if err == nil && len(rules) == 0 {
		issues = append(issues, "no active pricing rules found")
	}

	distribution := map[int]int{}
	for i := range rules {
		distribution[rules[i].EffectivePriority()]++
	}

	// Exercise the calculation path end to end with a synthetic request.
	testCalc := uc.calc.Compute(nil, model.PriceRequest{
		ItemCode:  "ENGINE-SELF-TEST",
		BasePrice: 100,
		Quantity:  1,
	})

	stats := uc.results.Stats()
	report := &dto.ValidationReport{
		Status: "success",
		Issues: issues,
		Statistics: map[string]interface{}{
			"engine_instance_id":    uc.instanceID,
			"active_rules":          len(rules),
			"priority_distribution": distribution,
			"cache":                 stats,
			"test_calculation":      testCalc,
		},
	}
	if len(issues) > 0 {
		report.Status = "error"
	}
	return report, nil
}

// CacheStats exposes result-cache counters for observability and tests.
func (uc *pricingUseCase) CacheStats() resultcache.Stats {
	return uc.results.Stats()
}

func validateRequest(req *model.PriceRequest) error {
	if req.ItemCode == "" {
		return errors.Wrap(pricing.ErrMissingParameters, "item_code is required")
	}
	if req.BasePrice <= 0 {
		return errors.Wrap(pricing.ErrMissingParameters, "base_price must be positive")
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}
	if req.TotalAmount < 0 {
		return errors.Wrap(pricing.ErrMissingParameters, "total_amount cannot be negative")
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}
	return nil
}

func elapsedMs(start time.Time) float64 {
	return calculator.RoundMoney(float64(time.Since(start).Microseconds()) / 1000)
}
