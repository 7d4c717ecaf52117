package matcher

import (
	"testing"
	"time"

	"github.com/fekuna/omnipos-pricing-service/internal/model"
	"github.com/fekuna/omnipos-pricing-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Monday 2025-06-02, 14:30 local to the engine.
var monAfternoon = time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

func ctxFor(req model.PriceRequest) MatchContext {
	if req.Timestamp.IsZero() {
		req.Timestamp = monAfternoon
	}
	return MatchContext{Request: req}
}

func activeRule(id string, ptype model.PricingType) model.PricingRule {
	return model.PricingRule{
		ID:          id,
		RuleName:    id,
		PricingType: ptype,
		IsActive:    true,
	}
}

func TestMatchSkipsInactiveRules(t *testing.T) {
	m := New(logger.NewNop())

	rule := activeRule("R1", model.TypeBasePrice)
	rule.IsActive = false

	got := m.Match([]model.PricingRule{rule}, ctxFor(model.PriceRequest{ItemCode: "SKU-1", Quantity: 1}))
	assert.Empty(t, got)
}

func TestMatchScopeFilters(t *testing.T) {
	m := New(logger.NewNop())

	wildcard := activeRule("WILD", model.TypeBasePrice)
	itemScoped := activeRule("ITEM", model.TypeBasePrice)
	itemScoped.ItemCode = "SKU-1"
	otherItem := activeRule("OTHER", model.TypeBasePrice)
	otherItem.ItemCode = "SKU-2"
	branchScoped := activeRule("BRANCH", model.TypeBranchOverride)
	branchScoped.BranchID = "BR-9"

	rules := []model.PricingRule{wildcard, itemScoped, otherItem, branchScoped}
	got := m.Match(rules, ctxFor(model.PriceRequest{ItemCode: "SKU-1", Quantity: 1, BranchID: "BR-1"}))

	ids := make([]string, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{"WILD", "ITEM"}, ids)
}

func TestMatchGroupAndBrandScope(t *testing.T) {
	m := New(logger.NewNop())

	groupScoped := activeRule("GROUP", model.TypeBasePrice)
	groupScoped.ItemGroup = "Beverages"
	brandScoped := activeRule("BRAND", model.TypeBasePrice)
	brandScoped.Brand = "Acme"

	mc := ctxFor(model.PriceRequest{ItemCode: "SKU-1", Quantity: 1})
	mc.ItemGroup = "Beverages"

	got := m.Match([]model.PricingRule{groupScoped, brandScoped}, mc)
	require.Len(t, got, 1)
	assert.Equal(t, "GROUP", got[0].ID)
}

func TestMatchDateRangeInclusive(t *testing.T) {
	m := New(logger.NewNop())

	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	upto := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	rule := activeRule("DATED", model.TypeBasePrice)
	rule.ValidFrom = &from
	rule.ValidUpto = &upto

	// Request lands on the upto day; the bound is inclusive.
	got := m.Match([]model.PricingRule{rule}, ctxFor(model.PriceRequest{ItemCode: "SKU-1", Quantity: 1}))
	assert.Len(t, got, 1)

	// One day past the window.
	mc := ctxFor(model.PriceRequest{ItemCode: "SKU-1", Quantity: 1, Timestamp: monAfternoon.AddDate(0, 0, 1)})
	assert.Empty(t, m.Match([]model.PricingRule{rule}, mc))
}

func TestMatchTimeBasedWindow(t *testing.T) {
	m := New(logger.NewNop())

	rule := activeRule("HAPPY-HOUR", model.TypeTimeBased)
	rule.FromTime = "14:00:00"
	rule.ToTime = "17:00:00"
	rule.DaysOfWeekRaw = "Monday,Tuesday"
	rule.DiscountPercentage = 10

	// Monday 14:30 is inside the window.
	assert.Len(t, m.Match([]model.PricingRule{rule}, ctxFor(model.PriceRequest{ItemCode: "SKU-1", Quantity: 1})), 1)

	// Same clock time on Wednesday: wrong day.
	wed := ctxFor(model.PriceRequest{ItemCode: "SKU-1", Quantity: 1, Timestamp: monAfternoon.AddDate(0, 0, 2)})
	assert.Empty(t, m.Match([]model.PricingRule{rule}, wed))

	// 17:00 exactly is outside the half-open window.
	five := ctxFor(model.PriceRequest{ItemCode: "SKU-1", Quantity: 1, Timestamp: time.Date(2025, 6, 2, 17, 0, 0, 0, time.UTC)})
	assert.Empty(t, m.Match([]model.PricingRule{rule}, five))
}

func TestMatchMalformedTimeWindowSkipped(t *testing.T) {
	m := New(logger.NewNop())

	inverted := activeRule("INVERTED", model.TypeTimeBased)
	inverted.FromTime = "18:00:00"
	inverted.ToTime = "09:00:00"
	inverted.DaysOfWeekRaw = "Monday"

	garbage := activeRule("GARBAGE", model.TypeTimeBased)
	garbage.FromTime = "not-a-time"
	garbage.ToTime = "17:00:00"
	garbage.DaysOfWeekRaw = "Monday"

	ok := activeRule("OK", model.TypeBasePrice)

	got := m.Match([]model.PricingRule{inverted, garbage, ok}, ctxFor(model.PriceRequest{ItemCode: "SKU-1", Quantity: 1}))
	require.Len(t, got, 1)
	assert.Equal(t, "OK", got[0].ID)
}

func TestMatchQuantityBreakBounds(t *testing.T) {
	m := New(logger.NewNop())

	rule := activeRule("QTY10", model.TypeQuantityBreak)
	rule.MinQuantity = 10
	rule.MaxQuantity = 20
	rule.DiscountPercentage = 5

	assert.Empty(t, m.Match([]model.PricingRule{rule}, ctxFor(model.PriceRequest{ItemCode: "SKU-1", Quantity: 2})))
	assert.Len(t, m.Match([]model.PricingRule{rule}, ctxFor(model.PriceRequest{ItemCode: "SKU-1", Quantity: 10})), 1)
	assert.Len(t, m.Match([]model.PricingRule{rule}, ctxFor(model.PriceRequest{ItemCode: "SKU-1", Quantity: 20})), 1)
	assert.Empty(t, m.Match([]model.PricingRule{rule}, ctxFor(model.PriceRequest{ItemCode: "SKU-1", Quantity: 21})))
}

func TestMatchSpendThreshold(t *testing.T) {
	m := New(logger.NewNop())

	rule := activeRule("SPEND500", model.TypeSpendDiscount)
	rule.MinSpendAmount = 500
	rule.DiscountPercentage = 5

	assert.Empty(t, m.Match([]model.PricingRule{rule}, ctxFor(model.PriceRequest{ItemCode: "SKU-1", Quantity: 1, TotalAmount: 499.99})))
	assert.Len(t, m.Match([]model.PricingRule{rule}, ctxFor(model.PriceRequest{ItemCode: "SKU-1", Quantity: 1, TotalAmount: 500})), 1)
}

func TestMatchBXGYMinimumBuyQuantity(t *testing.T) {
	m := New(logger.NewNop())

	rule := activeRule("B2G1", model.TypeBXGY)
	rule.BxgyBuyQty = 2
	rule.BxgyGetQty = 1

	assert.Empty(t, m.Match([]model.PricingRule{rule}, ctxFor(model.PriceRequest{ItemCode: "SKU-1", Quantity: 1})))
	assert.Len(t, m.Match([]model.PricingRule{rule}, ctxFor(model.PriceRequest{ItemCode: "SKU-1", Quantity: 2})), 1)
}

func TestMatchCustomerScope(t *testing.T) {
	m := New(logger.NewNop())

	rule := activeRule("VIP", model.TypeCustomerPrice)
	rule.Customer = "CUST-1"
	rule.BasePrice = 80

	groupRule := activeRule("WHOLESALE", model.TypeCustomerPrice)
	groupRule.CustomerGroup = "Wholesale"
	groupRule.BasePrice = 85

	mc := ctxFor(model.PriceRequest{ItemCode: "SKU-1", Quantity: 1, Customer: "CUST-2"})
	mc.CustomerGroup = "Wholesale"

	got := m.Match([]model.PricingRule{rule, groupRule}, mc)
	require.Len(t, got, 1)
	assert.Equal(t, "WHOLESALE", got[0].ID)
}
