package dto

import "github.com/fekuna/omnipos-pricing-service/internal/model"

// RuleScope is the hint passed to the rule store so it can prefilter
// candidates. Empty fields widen the fetch.
type RuleScope struct {
	ItemCode  string `json:"item_code,omitempty"`
	ItemGroup string `json:"item_group,omitempty"`
	Brand     string `json:"brand,omitempty"`
	Customer  string `json:"customer,omitempty"`
	BranchID  string `json:"branch_id,omitempty"`
}

// BulkPriceInput is the shared context for a batch calculation. When
// TotalAmount is zero it defaults to the cart subtotal.
type BulkPriceInput struct {
	Items       []model.PriceRequest `json:"items"`
	Customer    string               `json:"customer,omitempty"`
	BranchID    string               `json:"branch_id,omitempty"`
	TotalAmount float64              `json:"total_amount,omitempty"`
}

type ClearCacheResult struct {
	EntriesCleared int `json:"entries_cleared"`
}

// ValidationReport is the engine self-check output.
type ValidationReport struct {
	Status     string                 `json:"status"` // "success" or "error"
	Issues     []string               `json:"issues"`
	Statistics map[string]interface{} `json:"statistics"`
}
