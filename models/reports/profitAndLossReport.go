package reports

import (
	"context"
	"errors"
	"time"

	"github.com/praccloud/ledger_backend/models"
	"github.com/praccloud/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

type ProfitAndLossResponse struct {
	FromDate     time.Time       `json:"from_date"`
	ToDate       time.Time       `json:"to_date"`
	Revenue      []*GroupNode    `json:"revenue"`
	Expenses     []*GroupNode    `json:"expenses"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	NetIncome    decimal.Decimal `json:"net_income"`
}

// GetProfitAndLossReport reports revenue and expense rollups for the period.
// A missing range defaults to the current year to date.
func GetProfitAndLossReport(ctx context.Context, fromDate *time.Time, toDate *time.Time) (*ProfitAndLossResponse, error) {
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

	revenueRows, err := collectAccountRollup(ctx, tenantId, &from, &to, rollupFilter{
		AccountTypes: []models.AccountType{models.AccountTypeRevenue},
	})
	if err != nil {
		return nil, err
	}
	expenseRows, err := collectAccountRollup(ctx, tenantId, &from, &to, rollupFilter{
		AccountTypes: []models.AccountType{models.AccountTypeExpense},
	})
	if err != nil {
		return nil, err
	}

	revenueTree, totalRevenue := buildRollupTree(revenueRows, false)
	expenseTree, totalExpense := buildRollupTree(expenseRows, false)

	return &ProfitAndLossResponse{
		FromDate:     from,
		ToDate:       to,
		Revenue:      revenueTree,
		Expenses:     expenseTree,
		TotalRevenue: totalRevenue,
		TotalExpense: totalExpense,
		NetIncome:    totalRevenue.Sub(totalExpense),
	}, nil
}
