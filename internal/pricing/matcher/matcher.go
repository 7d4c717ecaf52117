package matcher

import (
	"time"

	"github.com/fekuna/omnipos-pricing-service/internal/model"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing"
	"github.com/fekuna/omnipos-pricing-service/pkg/logger"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// MatchContext is the request plus its resolved scope discriminators. The
// item/customer lookups happen once in the use case; matching itself never
// touches a store.
type MatchContext struct {
	Request       model.PriceRequest
	ItemGroup     string
	Brand         string
	CustomerGroup string
	Territory     string
}

// Timestamp returns the evaluation time, defaulting to now.
func (mc *MatchContext) Timestamp() time.Time {
	if mc.Request.Timestamp.IsZero() {
		return time.Now()
	}
	return mc.Request.Timestamp
}

type Matcher struct {
	logger logger.ZapLogger
}

func New(log logger.ZapLogger) *Matcher {
	return &Matcher{logger: log}
}

// Match filters candidates down to the rules applicable to the context.
// Output order is unspecified; ranking belongs to the resolver.
func (m *Matcher) Match(rules []model.PricingRule, mc MatchContext) []model.PricingRule {
	var matched []model.PricingRule
	for i := range rules {
		ok, err := m.applies(&rules[i], mc)
		if err != nil {
			// Malformed rule: skip it, keep the calculation alive.
			m.logger.Warn("skipping malformed pricing rule",
				zap.String("rule_id", rules[i].ID),
				zap.Error(err),
			)
			continue
		}
		if ok {
			matched = append(matched, rules[i])
		}
	}
	return matched
}

func (m *Matcher) applies(r *model.PricingRule, mc MatchContext) (bool, error) {
	if !r.IsActive {
		return false, nil
	}
	if !m.scopeMatches(r, mc) {
		return false, nil
	}
	if !m.dateValid(r, mc.Timestamp()) {
		return false, nil
	}
	if r.PricingType == model.TypeTimeBased {
		ok, err := m.timeWindowMatches(r, mc.Timestamp())
		if err != nil || !ok {
			return false, err
		}
	}
	return m.quantitativeMatches(r, mc.Request), nil
}

// scopeMatches applies the wildcard-or-equal semantics: a filter left empty
// on the rule accepts anything.
func (m *Matcher) scopeMatches(r *model.PricingRule, mc MatchContext) bool {
	if r.ItemCode != "" && r.ItemCode != mc.Request.ItemCode {
		return false
	}
	if r.ItemGroup != "" && r.ItemGroup != mc.ItemGroup {
		return false
	}
	if r.Brand != "" && r.Brand != mc.Brand {
		return false
	}
	if r.Customer != "" && r.Customer != mc.Request.Customer {
		return false
	}
	if r.CustomerGroup != "" && r.CustomerGroup != mc.CustomerGroup {
		return false
	}
	if r.Territory != "" && r.Territory != mc.Territory {
		return false
	}
	if r.BranchID != "" && r.BranchID != mc.Request.BranchID {
		return false
	}
	return true
}

// dateValid checks the inclusive valid_from/valid_upto range against the
// request date.
func (m *Matcher) dateValid(r *model.PricingRule, ts time.Time) bool {
	day := dateOnly(ts)
	if r.ValidFrom != nil && day.Before(dateOnly(*r.ValidFrom)) {
		return false
	}
	if r.ValidUpto != nil && day.After(dateOnly(*r.ValidUpto)) {
		return false
	}
	return true
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// timeWindowMatches enforces the [from, to) window and the weekday set.
// from >= to is an authoring-time invariant; a rule violating it is treated
// as never matching and reported as an evaluation error.
func (m *Matcher) timeWindowMatches(r *model.PricingRule, ts time.Time) (bool, error) {
	from, err := parseClock(r.FromTime)
	if err != nil {
		return false, errors.Wrapf(err, "rule %s: bad from_time %q", r.ID, r.FromTime)
	}
	to, err := parseClock(r.ToTime)
	if err != nil {
		return false, errors.Wrapf(err, "rule %s: bad to_time %q", r.ID, r.ToTime)
	}
	if from >= to {
		return false, errors.Wrapf(pricing.ErrRuleEvaluation,
			"rule %s: from_time %q not before to_time %q", r.ID, r.FromTime, r.ToTime)
	}

	days := r.DaysOfWeek()
	if len(days) > 0 {
		found := false
		for _, d := range days {
			if d == ts.Weekday() {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}

	now := secondsOfDay(ts)
	return from <= now && now < to, nil
}

// quantitativeMatches covers the quantity, spend, and BXGY predicates.
func (m *Matcher) quantitativeMatches(r *model.PricingRule, req model.PriceRequest) bool {
	qty := req.Quantity
	if qty <= 0 {
		qty = 1
	}

	switch r.PricingType {
	case model.TypeQuantityBreak:
		if qty < r.MinQuantity {
			return false
		}
		if r.MaxQuantity != 0 && qty > r.MaxQuantity {
			return false
		}
	case model.TypeSpendDiscount:
		if req.TotalAmount < r.MinSpendAmount {
			return false
		}
	case model.TypeBXGY:
		if qty < r.BxgyBuyQty {
			return false
		}
	}
	return true
}

// parseClock converts "HH:MM:SS" (seconds optional) into seconds of day.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		t, err = time.Parse("15:04", s)
		if err != nil {
			return 0, err
		}
	}
	return secondsOfDay(t), nil
}

func secondsOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}
