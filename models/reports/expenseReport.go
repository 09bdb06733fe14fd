package reports

import (
	"context"
	"errors"
	"time"

	"github.com/praccloud/ledger_backend/models"
	"github.com/praccloud/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

type ExpenseReportResponse struct {
	FromDate     time.Time       `json:"from_date"`
	ToDate       time.Time       `json:"to_date"`
	Groups       []*GroupNode    `json:"groups"`
	TotalExpense decimal.Decimal `json:"total_expense"`
}

// GetExpenseReport rolls up expense accounts for the period, optionally
// narrowed to one sub element group.
func GetExpenseReport(ctx context.Context, fromDate *time.Time, toDate *time.Time, subElementGroupId *int) (*ExpenseReportResponse, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	now := time.Now().UTC()
	from := utils.StartOfYear(now)
	if fromDate != nil {
		from = utils.StartOfDay(*fromDate)
	}
	to := now
	if toDate != nil {
		to = utils.EndOfDay(*toDate)
	}

	filter := rollupFilter{AccountTypes: []models.AccountType{models.AccountTypeExpense}}
	if subElementGroupId != nil && *subElementGroupId > 0 {
		if err := utils.ValidateResourceId[models.SubElementGroup](ctx, tenantId, *subElementGroupId); err != nil {
			return nil, errors.New("sub element group not found")
		}
		filter.SubElementGroupId = *subElementGroupId
	}

	rows, err := collectAccountRollup(ctx, tenantId, &from, &to, filter)
	if err != nil {
		return nil, err
	}
	tree, total := buildRollupTree(rows, false)

	return &ExpenseReportResponse{
		FromDate:     from,
		ToDate:       to,
		Groups:       tree,
		TotalExpense: total,
	}, nil
}
