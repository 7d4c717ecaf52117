package model

import "time"

// PriceRequest is the per-line-item calculation input. Timestamp defaults to
// evaluation time when zero.
type PriceRequest struct {
	ItemCode    string    `json:"item_code"`
	BasePrice   float64   `json:"base_price"` // unit price, must be > 0
	Quantity    int       `json:"quantity"`   // defaults to 1
	TotalAmount float64   `json:"total_amount"`
	Customer    string    `json:"customer,omitempty"`
	BranchID    string    `json:"branch_id,omitempty"`
	TaxRate     float64   `json:"tax_rate,omitempty"` // percentage, applied to the final line price
	Timestamp   time.Time `json:"timestamp,omitempty"`
}

// PriceBreakdown itemizes the line total.
type PriceBreakdown struct {
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// PriceResult is the calculation output. BasePrice/FinalPrice are line-level
// amounts (unit price x quantity).
type PriceResult struct {
	ItemCode           string         `json:"item_code"`
	Quantity           int            `json:"quantity"`
	BasePrice          float64        `json:"base_price"`
	FinalPrice         float64        `json:"final_price"`
	DiscountAmount     float64        `json:"discount_amount"`
	DiscountPercentage float64        `json:"discount_percentage"`
	FreeUnits          int            `json:"free_units,omitempty"` // BXGY only
	RuleApplied        string         `json:"rule_applied,omitempty"`
	AppliedRules       []RuleSummary  `json:"applied_rules,omitempty"`
	Breakdown          PriceBreakdown `json:"price_breakdown"`
	CalculationTimeMs  float64        `json:"calculation_time_ms"`
	PerformanceWarning string         `json:"performance_warning,omitempty"`
	CacheHit           bool           `json:"cache_hit,omitempty"`
}

// BulkItemResult wraps a single item's outcome inside a batch. Error is set
// when that item failed; the price fields then carry the unchanged base.
type BulkItemResult struct {
	PriceResult
	Error string `json:"error,omitempty"`
}

// BulkResult aggregates a batch calculation.
type BulkResult struct {
	Items                []BulkItemResult `json:"items"`
	TotalOriginal        float64          `json:"total_original"`
	TotalFinal           float64          `json:"total_final"`
	TotalSavings         float64          `json:"total_savings"`
	RulesApplied         []string         `json:"rules_applied"`
	ItemsProcessed       int              `json:"items_processed"`
	ItemsFailed          int              `json:"items_failed"`
	CalculationTimeMs    float64          `json:"calculation_time_ms"`
	AvgCalculationTimeMs float64          `json:"average_calculation_time_ms"`
	PerformanceWarning   string           `json:"performance_warning,omitempty"`
}
