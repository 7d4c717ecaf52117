package model

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// PricingType is the closed set of rule categories in the 8-level hierarchy.
type PricingType string

const (
	TypeBasePrice      PricingType = "Base Price"
	TypeBranchOverride PricingType = "Branch Override"
	TypeCustomerPrice  PricingType = "Customer Price"
	TypeTimeBased      PricingType = "Time-based"
	TypeQuantityBreak  PricingType = "Quantity Break"
	TypeSpendDiscount  PricingType = "Spend Discount"
	TypeBXGY           PricingType = "BXGY"
	TypeManualOverride PricingType = "Manual Override"
)

// PriorityLevel maps each pricing type to its hierarchy tier. 8 (Manual
// Override) beats everything; 1 (Base Price) is the floor.
var priorityByType = map[PricingType]int{
	TypeBasePrice:      1,
	TypeBranchOverride: 2,
	TypeCustomerPrice:  3,
	TypeTimeBased:      4,
	TypeQuantityBreak:  5,
	TypeSpendDiscount:  6,
	TypeBXGY:           7,
	TypeManualOverride: 8,
}

func (t PricingType) PriorityLevel() (int, bool) {
	level, ok := priorityByType[t]
	return level, ok
}

func (t PricingType) Valid() bool {
	_, ok := priorityByType[t]
	return ok
}

// PricingRule is a scoped discount/override definition owned by the external
// rule store. The engine only ever reads these.
type PricingRule struct {
	ID            string      `db:"id" json:"id"`
	RuleName      string      `db:"rule_name" json:"rule_name"`
	PricingType   PricingType `db:"pricing_type" json:"pricing_type"`
	PriorityLevel int         `db:"priority_level" json:"priority_level"`

	// Scope filters. Empty string means wildcard.
	ItemCode      string `db:"item_code" json:"item_code"`
	ItemGroup     string `db:"item_group" json:"item_group"`
	Brand         string `db:"brand" json:"brand"`
	Customer      string `db:"customer" json:"customer"`
	CustomerGroup string `db:"customer_group" json:"customer_group"`
	Territory     string `db:"territory" json:"territory"`
	BranchID      string `db:"branch_id" json:"branch_id"`

	// Validity window. Dates are inclusive on both ends.
	ValidFrom *time.Time `db:"valid_from" json:"valid_from"`
	ValidUpto *time.Time `db:"valid_upto" json:"valid_upto"`

	// Time-of-day window, only meaningful for Time-based rules. HH:MM:SS,
	// half-open [from, to).
	FromTime      string `db:"from_time" json:"from_time"`
	ToTime        string `db:"to_time" json:"to_time"`
	DaysOfWeekRaw string `db:"days_of_week" json:"days_of_week"` // CSV of weekday names

	// Quantitative predicates. Zero means unset.
	MinQuantity    int     `db:"min_quantity" json:"min_quantity"`
	MaxQuantity    int     `db:"max_quantity" json:"max_quantity"`
	MinSpendAmount float64 `db:"min_spend_amount" json:"min_spend_amount"`
	BxgyBuyQty     int     `db:"bxgy_buy_qty" json:"bxgy_buy_qty"`
	BxgyGetQty     int     `db:"bxgy_get_qty" json:"bxgy_get_qty"`

	// Effect. BasePrice is an override unit price when > 0.
	BasePrice          float64 `db:"base_price" json:"base_price"`
	DiscountPercentage float64 `db:"discount_percentage" json:"discount_percentage"`
	DiscountAmount     float64 `db:"discount_amount" json:"discount_amount"`

	IsActive bool      `db:"is_active" json:"is_active"`
	Modified time.Time `db:"modified" json:"modified"`
}

// DaysOfWeek parses the stored CSV into weekdays. Unknown tokens are dropped.
func (r *PricingRule) DaysOfWeek() []time.Weekday {
	if r.DaysOfWeekRaw == "" {
		return nil
	}
	var days []time.Weekday
	for _, tok := range strings.Split(r.DaysOfWeekRaw, ",") {
		if d, ok := weekdayByName[strings.ToLower(strings.TrimSpace(tok))]; ok {
			days = append(days, d)
		}
	}
	return days
}

var weekdayByName = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// EffectivePriority returns the stored priority level, deriving it from the
// pricing type when the store left it unset.
func (r *PricingRule) EffectivePriority() int {
	if r.PriorityLevel != 0 {
		return r.PriorityLevel
	}
	level, _ := r.PricingType.PriorityLevel()
	return level
}

// ItemScopeSpecificity ranks how narrowly the rule targets items:
// item_code (3) > item_group (2) > brand (1) > unscoped (0).
func (r *PricingRule) ItemScopeSpecificity() int {
	switch {
	case r.ItemCode != "":
		return 3
	case r.ItemGroup != "":
		return 2
	case r.Brand != "":
		return 1
	default:
		return 0
	}
}

// Validate rejects invalid per-type field combinations so that a rule like a
// Base Price carrying BXGY quantities cannot be constructed.
func (r *PricingRule) Validate() error {
	if r.ID == "" {
		return errors.New("pricing rule: id is required")
	}
	if !r.PricingType.Valid() {
		return errors.Errorf("pricing rule %s: unknown pricing type %q", r.ID, r.PricingType)
	}
	expected, _ := r.PricingType.PriorityLevel()
	if r.PriorityLevel != 0 && r.PriorityLevel != expected {
		return errors.Errorf("pricing rule %s: priority level %d does not match type %q (want %d)",
			r.ID, r.PriorityLevel, r.PricingType, expected)
	}
	if r.DiscountPercentage < 0 || r.DiscountPercentage > 100 {
		return errors.Errorf("pricing rule %s: discount percentage %.2f out of range", r.ID, r.DiscountPercentage)
	}
	if r.DiscountAmount < 0 {
		return errors.Errorf("pricing rule %s: negative discount amount", r.ID)
	}
	if r.ValidFrom != nil && r.ValidUpto != nil && r.ValidUpto.Before(*r.ValidFrom) {
		return errors.Errorf("pricing rule %s: valid_upto before valid_from", r.ID)
	}

	switch r.PricingType {
	case TypeBasePrice, TypeBranchOverride, TypeCustomerPrice:
		if r.BasePrice <= 0 && r.DiscountPercentage == 0 && r.DiscountAmount == 0 {
			return errors.Errorf("pricing rule %s: %s requires a base price or discount", r.ID, r.PricingType)
		}
	case TypeTimeBased:
		if r.FromTime == "" || r.ToTime == "" {
			return errors.Errorf("pricing rule %s: time-based rule requires from_time and to_time", r.ID)
		}
		if r.DaysOfWeekRaw == "" {
			return errors.Errorf("pricing rule %s: time-based rule requires days_of_week", r.ID)
		}
	case TypeQuantityBreak:
		if r.MinQuantity <= 0 {
			return errors.Errorf("pricing rule %s: quantity break requires min_quantity", r.ID)
		}
		if r.MaxQuantity != 0 && r.MaxQuantity < r.MinQuantity {
			return errors.Errorf("pricing rule %s: max_quantity below min_quantity", r.ID)
		}
		if r.DiscountPercentage == 0 && r.DiscountAmount == 0 {
			return errors.Errorf("pricing rule %s: quantity break requires a discount", r.ID)
		}
	case TypeSpendDiscount:
		if r.MinSpendAmount <= 0 {
			return errors.Errorf("pricing rule %s: spend discount requires min_spend_amount", r.ID)
		}
		if r.DiscountPercentage == 0 && r.DiscountAmount == 0 {
			return errors.Errorf("pricing rule %s: spend discount requires a discount", r.ID)
		}
	case TypeBXGY:
		if r.BxgyBuyQty <= 0 || r.BxgyGetQty <= 0 {
			return errors.Errorf("pricing rule %s: BXGY requires buy and get quantities", r.ID)
		}
	case TypeManualOverride:
		if r.BasePrice <= 0 && r.DiscountPercentage == 0 && r.DiscountAmount == 0 {
			return errors.Errorf("pricing rule %s: manual override requires at least one pricing value", r.ID)
		}
	}

	// Cross-type contamination checks
	if r.PricingType != TypeBXGY && (r.BxgyBuyQty != 0 || r.BxgyGetQty != 0) {
		return errors.Errorf("pricing rule %s: BXGY quantities set on %s rule", r.ID, r.PricingType)
	}
	if r.PricingType != TypeQuantityBreak && r.PricingType != TypeBXGY && r.MinQuantity != 0 {
		return errors.Errorf("pricing rule %s: min_quantity set on %s rule", r.ID, r.PricingType)
	}
	if r.PricingType != TypeSpendDiscount && r.MinSpendAmount != 0 {
		return errors.Errorf("pricing rule %s: min_spend_amount set on %s rule", r.ID, r.PricingType)
	}
	if r.PricingType != TypeTimeBased && (r.FromTime != "" || r.ToTime != "" || r.DaysOfWeekRaw != "") {
		return errors.Errorf("pricing rule %s: time window set on %s rule", r.ID, r.PricingType)
	}

	return nil
}

// RuleSummary is the read-only projection returned by diagnostic lookups.
type RuleSummary struct {
	ID                 string      `json:"id"`
	RuleName           string      `json:"rule_name"`
	PricingType        PricingType `json:"pricing_type"`
	PriorityLevel      int         `json:"priority_level"`
	ItemCode           string      `json:"item_code,omitempty"`
	ItemGroup          string      `json:"item_group,omitempty"`
	Brand              string      `json:"brand,omitempty"`
	Customer           string      `json:"customer,omitempty"`
	BranchID           string      `json:"branch_id,omitempty"`
	BasePrice          float64     `json:"base_price,omitempty"`
	DiscountPercentage float64     `json:"discount_percentage,omitempty"`
	DiscountAmount     float64     `json:"discount_amount,omitempty"`
}

func (r *PricingRule) Summary() RuleSummary {
	return RuleSummary{
		ID:                 r.ID,
		RuleName:           r.RuleName,
		PricingType:        r.PricingType,
		PriorityLevel:      r.PriorityLevel,
		ItemCode:           r.ItemCode,
		ItemGroup:          r.ItemGroup,
		Brand:              r.Brand,
		Customer:           r.Customer,
		BranchID:           r.BranchID,
		BasePrice:          r.BasePrice,
		DiscountPercentage: r.DiscountPercentage,
		DiscountAmount:     r.DiscountAmount,
	}
}
