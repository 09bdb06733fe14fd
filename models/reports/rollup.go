package reports

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/praccloud/ledger_backend/config"
	"github.com/praccloud/ledger_backend/models"
	"github.com/shopspring/decimal"
)

// Every report shares the same two-step shape: collect active accounts of the
// requested types with their full hierarchy path and period balance, then
// fold the flat rows into the 4-level tree with running totals at every node.

type GroupItem struct {
	AccountId   int             `json:"account_id"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Amount      decimal.Decimal `json:"amount"`
}

type GroupNode struct {
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Total    decimal.Decimal `json:"total"`
	Children []*GroupNode    `json:"children,omitempty"`
	Accounts []GroupItem     `json:"accounts,omitempty"`
}

// accountRollupRow is one account with its hierarchy path and raw line sums.
type accountRollupRow struct {
	AccountId      int
	AccountCode    string
	AccountName    string
	AccountType    models.AccountType
	SystemRole     models.AccountRole
	OpeningBalance decimal.Decimal
	MainId         int
	MainCode       string
	MainName       string
	MainCustomName string
	ElementId      int
	ElementCode    string
	ElementName    string
	ElementCustom  string
	SubId          int
	SubCode        string
	SubName        string
	SubCustomName  string
	DetailedId     int
	DetailedCode   string
	DetailedName   string
	DetailedCustom string
	Debit          decimal.Decimal
	Credit         decimal.Decimal
}

type rollupFilter struct {
	AccountTypes      []models.AccountType
	SubElementGroupId int
	SystemRole        models.AccountRole
}

// collectAccountRollup runs the shared aggregation query. Date bounds apply
// to journal lines only; accounts without postings still appear with zero
// sums so reports show the full chart, not just the active slice.
func collectAccountRollup(ctx context.Context, tenantId string, from *time.Time, to *time.Time, filter rollupFilter) ([]accountRollupRow, error) {
	db := config.GetDB()

	var sb strings.Builder
	args := []interface{}{tenantId, true, false}
	sb.WriteString(`
SELECT
    a.id AS account_id,
    a.account_code,
    a.name AS account_name,
    a.account_type,
    a.system_role,
    a.opening_balance,
    m.id AS main_id, m.code AS main_code, m.name AS main_name, m.custom_name AS main_custom_name,
    e.id AS element_id, e.code AS element_code, e.name AS element_name, e.custom_name AS element_custom,
    s.id AS sub_id, s.code AS sub_code, s.name AS sub_name, s.custom_name AS sub_custom_name,
    d.id AS detailed_id, d.code AS detailed_code, d.name AS detailed_name, d.custom_name AS detailed_custom,
    COALESCE(sums.debit, 0) AS debit,
    COALESCE(sums.credit, 0) AS credit
FROM accounts AS a
JOIN detailed_groups AS d ON a.detailed_group_id = d.id
JOIN sub_element_groups AS s ON d.sub_element_group_id = s.id
JOIN element_groups AS e ON s.element_group_id = e.id
JOIN main_groups AS m ON e.main_group_id = m.id
LEFT JOIN (
    SELECT l.account_id, SUM(l.debit_amount) AS debit, SUM(l.credit_amount) AS credit
    FROM journal_entry_lines AS l
    JOIN journal_entries AS je ON l.journal_entry_id = je.id
    WHERE je.tenant_id = ? AND je.is_posted = ? AND je.is_deleted = ?`)
	if from != nil {
		sb.WriteString(" AND je.entry_date >= ?")
		args = append(args, *from)
	}
	if to != nil {
		sb.WriteString(" AND je.entry_date <= ?")
		args = append(args, *to)
	}
	sb.WriteString(`
    GROUP BY l.account_id
) AS sums ON sums.account_id = a.id
WHERE a.tenant_id = ? AND a.is_active = ?`)
	args = append(args, tenantId, true)
	if len(filter.AccountTypes) > 0 {
		sb.WriteString(" AND a.account_type IN ?")
		args = append(args, filter.AccountTypes)
	}
	if filter.SubElementGroupId > 0 {
		sb.WriteString(" AND s.id = ?")
		args = append(args, filter.SubElementGroupId)
	}
	if filter.SystemRole != models.AccountRoleNone {
		sb.WriteString(" AND a.system_role = ?")
		args = append(args, filter.SystemRole)
	}
	sb.WriteString(" ORDER BY a.account_code")

	var rows []accountRollupRow
	if err := db.WithContext(ctx).Raw(sb.String(), args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// periodBalance applies the type-aware sign convention to one row.
// includeOpening is set for since-inception reports (balance sheet).
func periodBalance(row accountRollupRow, includeOpening bool) decimal.Decimal {
	balance := row.AccountType.BalanceFromSums(row.Debit, row.Credit)
	if includeOpening {
		balance = balance.Add(row.OpeningBalance)
	}
	return balance
}

func displayName(name string, customName string) string {
	if models.GroupName(name) == models.GroupNameCustom && customName != "" {
		return customName
	}
	return name
}

// buildRollupTree folds flat rows into the 4-level hierarchy. Totals
// accumulate bottom-up so every node carries the sum of its subtree.
func buildRollupTree(rows []accountRollupRow, includeOpening bool) ([]*GroupNode, decimal.Decimal) {
	mains := make(map[int]*GroupNode)
	elements := make(map[int]*GroupNode)
	subs := make(map[int]*GroupNode)
	detaileds := make(map[int]*GroupNode)
	elementParent := make(map[int]int)
	subParent := make(map[int]int)
	detailedParent := make(map[int]int)

	grandTotal := decimal.Zero
	for _, row := range rows {
		amount := periodBalance(row, includeOpening)
		grandTotal = grandTotal.Add(amount)

		main, ok := mains[row.MainId]
		if !ok {
			main = &GroupNode{Code: row.MainCode, Name: displayName(row.MainName, row.MainCustomName), Total: decimal.Zero}
			mains[row.MainId] = main
		}
		element, ok := elements[row.ElementId]
		if !ok {
			element = &GroupNode{Code: row.ElementCode, Name: displayName(row.ElementName, row.ElementCustom), Total: decimal.Zero}
			elements[row.ElementId] = element
			elementParent[row.ElementId] = row.MainId
			main.Children = append(main.Children, element)
		}
		sub, ok := subs[row.SubId]
		if !ok {
			sub = &GroupNode{Code: row.SubCode, Name: displayName(row.SubName, row.SubCustomName), Total: decimal.Zero}
			subs[row.SubId] = sub
			subParent[row.SubId] = row.ElementId
			element.Children = append(element.Children, sub)
		}
		detailed, ok := detaileds[row.DetailedId]
		if !ok {
			detailed = &GroupNode{Code: row.DetailedCode, Name: displayName(row.DetailedName, row.DetailedCustom), Total: decimal.Zero}
			detaileds[row.DetailedId] = detailed
			detailedParent[row.DetailedId] = row.SubId
			sub.Children = append(sub.Children, detailed)
		}

		detailed.Accounts = append(detailed.Accounts, GroupItem{
			AccountId:   row.AccountId,
			AccountCode: row.AccountCode,
			AccountName: row.AccountName,
			Amount:      amount,
		})
		detailed.Total = detailed.Total.Add(amount)
		sub.Total = sub.Total.Add(amount)
		element.Total = element.Total.Add(amount)
		main.Total = main.Total.Add(amount)
	}

	tree := make([]*GroupNode, 0, len(mains))
	for _, m := range mains {
		tree = append(tree, m)
	}
	sortNodes(tree)
	return tree, grandTotal
}

func sortNodes(nodes []*GroupNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Code < nodes[j].Code })
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}
