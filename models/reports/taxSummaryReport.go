package reports

import (
	"context"
	"errors"
	"time"

	"github.com/praccloud/ledger_backend/models"
	"github.com/praccloud/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

type TaxSummaryResponse struct {
	FromDate time.Time       `json:"from_date"`
	ToDate   time.Time       `json:"to_date"`
	Accounts []GroupItem     `json:"accounts"`
	TotalTax decimal.Decimal `json:"total_tax"`
}

// GetTaxSummaryReport sums tax collected during the period. Tax accounts are
// resolved through their system role tag, never by matching on names.
func GetTaxSummaryReport(ctx context.Context, fromDate *time.Time, toDate *time.Time) (*TaxSummaryResponse, error) {
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

	rows, err := collectAccountRollup(ctx, tenantId, &from, &to, rollupFilter{
		AccountTypes: []models.AccountType{models.AccountTypeLiability},
		SystemRole:   models.AccountRoleTaxPayable,
	})
	if err != nil {
		return nil, err
	}

	accounts := make([]GroupItem, 0, len(rows))
	total := decimal.Zero
	for _, row := range rows {
		amount := periodBalance(row, false)
		accounts = append(accounts, GroupItem{
			AccountId:   row.AccountId,
			AccountCode: row.AccountCode,
			AccountName: row.AccountName,
			Amount:      amount,
		})
		total = total.Add(amount)
	}

	return &TaxSummaryResponse{
		FromDate: from,
		ToDate:   to,
		Accounts: accounts,
		TotalTax: total,
	}, nil
}
