package reports

import (
	"context"
	"errors"
	"time"

	"github.com/praccloud/ledger_backend/models"
	"github.com/praccloud/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

type BalanceSheetResponse struct {
	AsOf             time.Time       `json:"as_of"`
	Assets           []*GroupNode    `json:"assets"`
	Liabilities      []*GroupNode    `json:"liabilities"`
	Equity           []*GroupNode    `json:"equity"`
	TotalAssets      decimal.Decimal `json:"total_assets"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities"`
	// RetainedEarnings is cumulative revenue minus expense since inception.
	// It closes the accounting equation; without it a tenant with activity
	// would never balance.
	RetainedEarnings decimal.Decimal `json:"retained_earnings"`
	TotalEquity      decimal.Decimal `json:"total_equity"`
}

// GetBalanceSheetReport reports cumulative balances since inception up to
// asOf, opening balances included.
func GetBalanceSheetReport(ctx context.Context, asOf *time.Time) (*BalanceSheetResponse, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	to := time.Now().UTC()
	if asOf != nil {
		to = utils.EndOfDay(*asOf)
	}

	collect := func(types ...models.AccountType) ([]*GroupNode, decimal.Decimal, error) {
		rows, err := collectAccountRollup(ctx, tenantId, nil, &to, rollupFilter{AccountTypes: types})
		if err != nil {
			return nil, decimal.Zero, err
		}
		tree, total := buildRollupTree(rows, true)
		return tree, total, nil
	}

	assets, totalAssets, err := collect(models.AccountTypeAsset)
	if err != nil {
		return nil, err
	}
	liabilities, totalLiabilities, err := collect(models.AccountTypeLiability)
	if err != nil {
		return nil, err
	}
	equity, totalEquity, err := collect(models.AccountTypeEquity)
	if err != nil {
		return nil, err
	}
	_, totalRevenue, err := collect(models.AccountTypeRevenue)
	if err != nil {
		return nil, err
	}
	_, totalExpense, err := collect(models.AccountTypeExpense)
	if err != nil {
		return nil, err
	}
	retained := totalRevenue.Sub(totalExpense)

	return &BalanceSheetResponse{
		AsOf:             to,
		Assets:           assets,
		Liabilities:      liabilities,
		Equity:           equity,
		TotalAssets:      totalAssets,
		TotalLiabilities: totalLiabilities,
		RetainedEarnings: retained,
		TotalEquity:      totalEquity.Add(retained),
	}, nil
}
