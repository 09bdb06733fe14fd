package reports

import (
	"context"
	"errors"
	"time"

	"github.com/praccloud/ledger_backend/config"
	"github.com/praccloud/ledger_backend/models"
	"github.com/praccloud/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

type CashFlowActivityGroup struct {
	Activity models.CashflowActivity `json:"activity"`
	Total    decimal.Decimal         `json:"total"`
	Accounts []GroupItem             `json:"accounts"`
}

type CashFlowResponse struct {
	FromDate    time.Time              `json:"from_date"`
	ToDate      time.Time              `json:"to_date"`
	Operating   *CashFlowActivityGroup `json:"operating"`
	Investing   *CashFlowActivityGroup `json:"investing"`
	Financing   *CashFlowActivityGroup `json:"financing"`
	NetCashFlow decimal.Decimal        `json:"net_cash_flow"`
}

type cashFlowRow struct {
	AccountId        int
	AccountCode      string
	AccountName      string
	CashflowActivity models.CashflowActivity
	Amount           decimal.Decimal
}

// GetCashFlowReport traces period cash movement. Only entries that touch a
// cash account count; each movement is attributed to the counter-accounts of
// the entry and bucketed by their stored activity classification. Because the
// counter side of a balanced entry mirrors the cash side, NetCashFlow always
// reconciles to the period change in the cash balance. Transfers between cash
// accounts cancel out and entries that never touch cash are ignored.
func GetCashFlowReport(ctx context.Context, fromDate *time.Time, toDate *time.Time) (*CashFlowResponse, error) {
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

	// credit - debit on the counter line equals the cash the line moved in
	db := config.GetDB()
	var rows []cashFlowRow
	if err := db.WithContext(ctx).Raw(`
SELECT
    a.id AS account_id,
    a.account_code,
    a.name AS account_name,
    a.cashflow_activity,
    COALESCE(SUM(l.credit_amount - l.debit_amount), 0) AS amount
FROM journal_entry_lines AS l
JOIN journal_entries AS je ON l.journal_entry_id = je.id
JOIN accounts AS a ON l.account_id = a.id
WHERE je.tenant_id = ? AND je.is_posted = ? AND je.is_deleted = ?
  AND je.entry_date >= ? AND je.entry_date <= ?
  AND a.system_role <> ?
  AND je.id IN (
      SELECT cl.journal_entry_id
      FROM journal_entry_lines AS cl
      JOIN accounts AS ca ON cl.account_id = ca.id
      WHERE ca.tenant_id = ? AND ca.system_role = ?
  )
GROUP BY a.id, a.account_code, a.name, a.cashflow_activity
ORDER BY a.account_code`,
		tenantId, true, false, from, to,
		models.AccountRoleCash, tenantId, models.AccountRoleCash).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	groups := map[models.CashflowActivity]*CashFlowActivityGroup{
		models.CashflowActivityOperating: {Activity: models.CashflowActivityOperating, Total: decimal.Zero, Accounts: []GroupItem{}},
		models.CashflowActivityInvesting: {Activity: models.CashflowActivityInvesting, Total: decimal.Zero, Accounts: []GroupItem{}},
		models.CashflowActivityFinancing: {Activity: models.CashflowActivityFinancing, Total: decimal.Zero, Accounts: []GroupItem{}},
	}
	net := decimal.Zero
	for _, row := range rows {
		if row.Amount.IsZero() {
			continue
		}
		net = net.Add(row.Amount)
		group, ok := groups[row.CashflowActivity]
		if !ok {
			// unclassified counter-accounts still move cash; fold them into
			// operating rather than dropping them from the net
			group = groups[models.CashflowActivityOperating]
		}
		group.Accounts = append(group.Accounts, GroupItem{
			AccountId:   row.AccountId,
			AccountCode: row.AccountCode,
			AccountName: row.AccountName,
			Amount:      row.Amount,
		})
		group.Total = group.Total.Add(row.Amount)
	}

	return &CashFlowResponse{
		FromDate:    from,
		ToDate:      to,
		Operating:   groups[models.CashflowActivityOperating],
		Investing:   groups[models.CashflowActivityInvesting],
		Financing:   groups[models.CashflowActivityFinancing],
		NetCashFlow: net,
	}, nil
}
