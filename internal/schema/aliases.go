package schema

import (
	"regexp"

	"erplens/pkg/contracts/domain"
)

// fieldAlias binds a canonical field name to the column-name variations
// seen in real exports. Order matters twice: tables are scanned top to
// bottom when mapping a column, and the first canonical target a column
// matches is the one it claims.
type fieldAlias struct {
	Canonical string
	Aliases   []string
}

// aliasTable lists every canonical field across all domains. A single
// table (rather than per-domain tables) mirrors how mixed exports name
// columns: an inventory file may carry sales-style names and vice versa.
var aliasTable = []fieldAlias{
	// Financial
	{"revenue", []string{"revenue", "sales", "total_revenue", "gross_sales", "turnover"}},
	{"cost_of_goods_sold", []string{"cogs", "cost_of_goods", "cost_of_sales", "direct_costs"}},
	{"gross_profit", []string{"gross_profit", "gross_margin", "gross_earnings"}},
	{"operating_expenses", []string{"operating_expenses", "opex", "operating_costs", "operating_overhead"}},
	{"operating_income", []string{"operating_income", "operating_profit", "ebit"}},
	{"net_income", []string{"net_income", "net_profit", "net_earnings", "bottom_line", "profit_after_tax"}},
	{"period", []string{"period", "date", "month", "year", "quarter", "fiscal_period", "posting_date"}},
	{"budget", []string{"budget", "budgeted", "planned", "forecast"}},

	// Manufacturing
	{"product_id", []string{"product_id", "product_code", "item_code", "material_code", "sku"}},
	{"product_name", []string{"product_name", "item_name", "description", "material_description"}},
	{"planned_quantity", []string{"planned_quantity", "planned_output", "target_quantity", "planned"}},
	{"actual_quantity", []string{"actual_quantity", "actual_output", "produced", "actual"}},
	{"good_quantity", []string{"good_quantity", "good_units", "conforming", "first_pass"}},
	{"rejected_quantity", []string{"rejected_quantity", "rejections", "scrap", "non_conforming"}},
	{"wastage_quantity", []string{"wastage", "waste", "spoilage"}},
	{"production_line", []string{"production_line", "line", "work_center", "machine", "equipment"}},
	{"efficiency", []string{"efficiency", "efficiency_rate", "oee", "utilization"}},

	// Inventory
	{"sku", []string{"sku", "product_code", "item_code", "material_code", "product_id"}},
	{"quantity", []string{"quantity", "qty", "on_hand", "stock", "inventory_qty"}},
	{"unit_cost", []string{"unit_cost", "cost_per_unit", "standard_cost", "avg_cost"}},
	{"unit_price", []string{"unit_price", "selling_price", "price", "retail_price"}},
	{"receipt_date", []string{"receipt_date", "received_date", "doc_date", "posting_date"}},
	{"last_movement_date", []string{"last_movement", "last_issue", "last_sale", "last_activity"}},
	{"warehouse", []string{"warehouse", "warehouse_id", "location", "site", "plant"}},

	// Sales
	{"order_id", []string{"order_id", "order_number", "order_no", "sales_order", "so_number"}},
	{"customer_id", []string{"customer_id", "customer_code", "client_id", "account"}},
	{"customer_name", []string{"customer_name", "customer", "client", "account_name", "company"}},
	{"order_date", []string{"order_date", "order_dt", "sales_date", "transaction_date"}},
	{"total_amount", []string{"total_amount", "line_total", "net_amount", "total_value", "amount", "total"}},
	{"discount", []string{"discount", "discount_amount", "disc", "allowance"}},

	// Purchase
	{"po_number", []string{"po_number", "purchase_order", "po_no", "purchase_order_no"}},
	{"supplier_id", []string{"supplier_id", "vendor_id", "supplier_code", "vendor_code"}},
	{"supplier_name", []string{"supplier_name", "vendor", "supplier", "vendor_name"}},
	{"quantity_ordered", []string{"quantity_ordered", "ordered_qty", "po_quantity"}},
	{"quantity_received", []string{"quantity_received", "received_qty", "receipt_qty"}},
	{"expected_delivery_date", []string{"expected_delivery", "delivery_date", "promised_date"}},
	{"actual_delivery_date", []string{"actual_delivery", "delivery_received", "received_date"}},
}

// typeKeywords drive domain detection: a column name containing any
// keyword scores one point for that domain.
var typeKeywords = map[domain.DataType][]string{
	domain.Financial: {
		"revenue", "profit", "margin", "expense", "income", "cogs", "budget", "forecast",
		"gross", "net", "operating", "ebitda", "ebit",
	},
	domain.Manufacturing: {
		"production", "planned", "actual", "good", "rejected", "wastage", "yield",
		"efficiency", "output", "throughput", "downtime", "oee",
	},
	domain.Inventory: {
		"sku", "stock", "inventory", "quantity", "on_hand", "warehouse", "receipt",
		"movement", "aging", "coverage", "reorder", "safety",
	},
	domain.Sales: {
		"order", "customer", "sales", "discount", "tax", "channel", "region",
		"segment", "sales_rep", "rep",
	},
	domain.Purchase: {
		"po", "purchase_order", "supplier", "vendor", "lead_time", "delivery",
		"receipt",
	},
}

// requiredFields gate which domains can actually be analyzed; a domain
// missing too many of these is rejected by the orchestrator.
var requiredFields = map[domain.DataType][]string{
	domain.Financial:     {"revenue", "period"},
	domain.Manufacturing: {"product_id", "planned_quantity", "actual_quantity"},
	domain.Inventory:     {"sku", "quantity", "unit_cost"},
	domain.Sales:         {"order_id", "product_id", "quantity", "total_amount"},
	domain.Purchase:      {"po_number", "supplier_id", "quantity_ordered", "unit_price"},
}

// wordMatchers holds the compiled whole-word patterns, one per alias,
// built once at startup so mapping a record set does no regex compilation.
var wordMatchers = buildWordMatchers()

func buildWordMatchers() map[string]*regexp.Regexp {
	matchers := make(map[string]*regexp.Regexp)
	for _, entry := range aliasTable {
		for _, alias := range entry.Aliases {
			if _, ok := matchers[alias]; !ok {
				matchers[alias] = regexp.MustCompile(`\b` + regexp.QuoteMeta(alias) + `\b`)
			}
		}
	}
	return matchers
}

// RequiredFields returns the ordered canonical fields a domain needs
func RequiredFields(dataType domain.DataType) []string {
	fields := requiredFields[dataType]
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}
