package calculator

import (
	"math"

	"github.com/fekuna/omnipos-pricing-service/internal/model"
)

// Calculator turns the winning rule into a monetary outcome. All amounts are
// line-level (unit price x quantity); CalculationTimeMs is filled by the
// caller.
type Calculator struct{}

func New() *Calculator {
	return &Calculator{}
}

// Compute applies the rule's pricing type to the request. A nil rule is the
// valid "no rule matched" outcome: base price returned unchanged.
func (c *Calculator) Compute(rule *model.PricingRule, req model.PriceRequest) model.PriceResult {
	qty := req.Quantity
	if qty <= 0 {
		qty = 1
	}
	subtotal := RoundMoney(req.BasePrice * float64(qty))

	res := model.PriceResult{
		ItemCode:   req.ItemCode,
		Quantity:   qty,
		BasePrice:  subtotal,
		FinalPrice: subtotal,
	}

	if rule != nil {
		c.apply(rule, req, qty, subtotal, &res)
		name := rule.RuleName
		if name == "" {
			name = rule.ID
		}
		res.RuleApplied = name
		res.AppliedRules = []model.RuleSummary{rule.Summary()}
	}

	res.FinalPrice = RoundMoney(res.FinalPrice)
	res.DiscountAmount = RoundMoney(res.DiscountAmount)
	res.DiscountPercentage = RoundPercent(res.DiscountPercentage)

	tax := RoundMoney(res.FinalPrice * req.TaxRate / 100)
	res.Breakdown = model.PriceBreakdown{
		Subtotal: subtotal,
		Discount: res.DiscountAmount,
		Tax:      tax,
		Total:    RoundMoney(res.FinalPrice + tax),
	}
	return res
}

func (c *Calculator) apply(rule *model.PricingRule, req model.PriceRequest, qty int, subtotal float64, res *model.PriceResult) {
	switch rule.PricingType {
	case model.TypeBasePrice, model.TypeBranchOverride, model.TypeCustomerPrice:
		if rule.BasePrice > 0 {
			// Unit price override. These tiers can only lower the price;
			// only Manual Override may raise it.
			final := rule.BasePrice * float64(qty)
			if final > subtotal {
				final = subtotal
			}
			res.FinalPrice = final
			res.DiscountAmount = subtotal - final
			c.deriveDiscountPercentage(subtotal, res)
			return
		}
		c.applyDiscount(rule, subtotal, res)

	case model.TypeManualOverride:
		if rule.BasePrice > 0 {
			// Explicit override; a higher price is an increase, not a
			// negative discount.
			final := rule.BasePrice * float64(qty)
			res.FinalPrice = final
			if final < subtotal {
				res.DiscountAmount = subtotal - final
				c.deriveDiscountPercentage(subtotal, res)
			}
			return
		}
		c.applyDiscount(rule, subtotal, res)

	case model.TypeTimeBased, model.TypeSpendDiscount, model.TypeQuantityBreak:
		c.applyDiscount(rule, subtotal, res)

	case model.TypeBXGY:
		if rule.BxgyBuyQty <= 0 {
			return
		}
		free := (qty / rule.BxgyBuyQty) * rule.BxgyGetQty
		if free > qty {
			free = qty
		}
		if free <= 0 {
			return
		}
		discount := float64(free) * req.BasePrice
		res.FreeUnits = free
		res.DiscountAmount = discount
		res.FinalPrice = subtotal - discount
		c.deriveDiscountPercentage(subtotal, res)
	}
}

// applyDiscount handles the shared percentage-or-amount formula, applied once
// per line and floored at zero.
func (c *Calculator) applyDiscount(rule *model.PricingRule, subtotal float64, res *model.PriceResult) {
	switch {
	case rule.DiscountPercentage > 0:
		pct := rule.DiscountPercentage
		if pct > 100 {
			pct = 100
		}
		discount := subtotal * pct / 100
		res.DiscountAmount = discount
		res.DiscountPercentage = pct
		res.FinalPrice = subtotal - discount
	case rule.DiscountAmount > 0:
		discount := rule.DiscountAmount
		if discount > subtotal {
			discount = subtotal
		}
		res.DiscountAmount = discount
		res.FinalPrice = subtotal - discount
		c.deriveDiscountPercentage(subtotal, res)
	}
}

func (c *Calculator) deriveDiscountPercentage(subtotal float64, res *model.PriceResult) {
	if subtotal > 0 && res.DiscountAmount > 0 {
		res.DiscountPercentage = res.DiscountAmount / subtotal * 100
	}
}

// RoundMoney rounds to 2 decimal places, half up.
func RoundMoney(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// RoundPercent rounds to 1 decimal place, half up.
func RoundPercent(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}
