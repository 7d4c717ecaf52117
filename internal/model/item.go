package model

// ItemInfo is the slice of the item master the engine needs to resolve scope:
// group and brand feed the matcher, tax rate feeds the breakdown.
type ItemInfo struct {
	ItemCode  string  `db:"item_code" json:"item_code"`
	ItemName  string  `db:"item_name" json:"item_name"`
	ItemGroup string  `db:"item_group" json:"item_group"`
	Brand     string  `db:"brand" json:"brand"`
	StockUOM  string  `db:"stock_uom" json:"stock_uom"`
	TaxRate   float64 `db:"tax_rate" json:"tax_rate"`
}

// CustomerInfo resolves customer-level scope discriminators.
type CustomerInfo struct {
	Customer      string `db:"customer" json:"customer"`
	CustomerGroup string `db:"customer_group" json:"customer_group"`
	Territory     string `db:"territory" json:"territory"`
}
