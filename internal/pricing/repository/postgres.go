package repository

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/fekuna/omnipos-pricing-service/internal/model"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing/dto"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// candidateLimit bounds a single fetch; the store should never hand the
// matcher an unbounded rule list.
const candidateLimit = 50

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

// FetchActiveRules pulls active candidates for the scope hint. Filters use
// wildcard-or-match semantics so rules with unset scope columns always come
// back; exact matching is the engine's job.
func (r *PGRepository) FetchActiveRules(ctx context.Context, scope dto.RuleScope) ([]model.PricingRule, error) {
	conditions := []string{"is_active = true"}
	args := map[string]interface{}{}

	if scope.ItemCode != "" {
		conditions = append(conditions, "(item_code = :item_code OR item_code = '')")
		args["item_code"] = scope.ItemCode
	}
	if scope.ItemGroup != "" {
		conditions = append(conditions, "(item_group = :item_group OR item_group = '')")
		args["item_group"] = scope.ItemGroup
	}
	if scope.Brand != "" {
		conditions = append(conditions, "(brand = :brand OR brand = '')")
		args["brand"] = scope.Brand
	}
	if scope.Customer != "" {
		conditions = append(conditions, "(customer = :customer OR customer = '')")
		args["customer"] = scope.Customer
	}
	if scope.BranchID != "" {
		conditions = append(conditions, "(branch_id = :branch_id OR branch_id = '')")
		args["branch_id"] = scope.BranchID
	}

	query := `
        SELECT id, rule_name, pricing_type, priority_level,
               item_code, item_group, brand, customer, customer_group, territory, branch_id,
               valid_from, valid_upto, from_time, to_time, days_of_week,
               min_quantity, max_quantity, min_spend_amount, bxgy_buy_qty, bxgy_get_qty,
               base_price, discount_percentage, discount_amount,
               is_active, modified
        FROM pos_pricing_rules
        WHERE ` + strings.Join(conditions, " AND ") + `
        ORDER BY priority_level DESC, modified DESC
        LIMIT ` + strconv.Itoa(candidateLimit)

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "prepare pricing rule query")
	}
	defer nstmt.Close()

	var rules []model.PricingRule
	if err := nstmt.SelectContext(ctx, &rules, args); err != nil {
		return nil, errors.Wrap(err, "fetch active pricing rules")
	}
	return rules, nil
}

func (r *PGRepository) FindItemInfo(ctx context.Context, itemCode string) (*model.ItemInfo, error) {
	var info model.ItemInfo
	query := `SELECT item_code, item_name, item_group, brand, stock_uom, tax_rate
              FROM items WHERE item_code = $1 LIMIT 1`
	err := r.DB.GetContext(ctx, &info, query, itemCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find item info")
	}
	return &info, nil
}

func (r *PGRepository) FindCustomerInfo(ctx context.Context, customer string) (*model.CustomerInfo, error) {
	var info model.CustomerInfo
	query := `SELECT customer, customer_group, territory
              FROM customers WHERE customer = $1 LIMIT 1`
	err := r.DB.GetContext(ctx, &info, query, customer)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find customer info")
	}
	return &info, nil
}
