package models

import (
	"context"
	"fmt"

	"github.com/praccloud/ledger_backend/config"
	"github.com/praccloud/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// defaultAccountSeed describes one leaf account within the default chart.
type defaultAccountSeed struct {
	Name             string
	AccountType      AccountType
	CashflowActivity CashflowActivity
	SystemRole       AccountRole
}

type defaultDetailedSeed struct {
	CustomName string
	Accounts   []defaultAccountSeed
}

type defaultSubElementSeed struct {
	CustomName     string
	DetailedGroups []defaultDetailedSeed
}

type defaultElementSeed struct {
	CustomName       string
	SubElementGroups []defaultSubElementSeed
}

type defaultMainSeed struct {
	Name          GroupName
	ElementGroups []defaultElementSeed
}

// defaultChart is the starter hierarchy every tenant gets. The role-tagged
// accounts are the ones automated postings resolve at runtime; they must all
// be present for invoicing to work.
var defaultChart = []defaultMainSeed{
	{
		Name: GroupNameAssets,
		ElementGroups: []defaultElementSeed{
			{
				CustomName: "Current Assets",
				SubElementGroups: []defaultSubElementSeed{
					{
						CustomName: "Cash & Cash Equivalents",
						DetailedGroups: []defaultDetailedSeed{
							{
								CustomName: "Cash on Hand",
								Accounts: []defaultAccountSeed{
									{Name: "Cash", AccountType: AccountTypeAsset, CashflowActivity: CashflowActivityOperating, SystemRole: AccountRoleCash},
								},
							},
						},
					},
					{
						CustomName: "Receivables",
						DetailedGroups: []defaultDetailedSeed{
							{
								CustomName: "Trade Receivables",
								Accounts: []defaultAccountSeed{
									{Name: "Accounts Receivable", AccountType: AccountTypeAsset, CashflowActivity: CashflowActivityOperating, SystemRole: AccountRoleAccountsReceivable},
								},
							},
						},
					},
				},
			},
			{
				CustomName: "Fixed Assets",
				SubElementGroups: []defaultSubElementSeed{
					{
						CustomName: "Property & Equipment",
						DetailedGroups: []defaultDetailedSeed{
							{
								CustomName: "Equipment",
								Accounts: []defaultAccountSeed{
									{Name: "Office Equipment", AccountType: AccountTypeAsset, CashflowActivity: CashflowActivityInvesting},
								},
							},
						},
					},
				},
			},
		},
	},
	{
		Name: GroupNameLiabilities,
		ElementGroups: []defaultElementSeed{
			{
				CustomName: "Current Liabilities",
				SubElementGroups: []defaultSubElementSeed{
					{
						CustomName: "Payables",
						DetailedGroups: []defaultDetailedSeed{
							{
								CustomName: "Trade Payables",
								Accounts: []defaultAccountSeed{
									{Name: "Accounts Payable", AccountType: AccountTypeLiability, CashflowActivity: CashflowActivityOperating, SystemRole: AccountRoleAccountsPayable},
								},
							},
							{
								CustomName: "Tax Liabilities",
								Accounts: []defaultAccountSeed{
									{Name: "Tax Payable", AccountType: AccountTypeLiability, CashflowActivity: CashflowActivityOperating, SystemRole: AccountRoleTaxPayable},
								},
							},
						},
					},
				},
			},
		},
	},
	{
		Name: GroupNameEquity,
		ElementGroups: []defaultElementSeed{
			{
				CustomName: "Owner Equity",
				SubElementGroups: []defaultSubElementSeed{
					{
						CustomName: "Capital",
						DetailedGroups: []defaultDetailedSeed{
							{
								CustomName: "Owner Capital",
								Accounts: []defaultAccountSeed{
									{Name: "Owner's Equity", AccountType: AccountTypeEquity, CashflowActivity: CashflowActivityFinancing},
								},
							},
						},
					},
				},
			},
		},
	},
	{
		Name: GroupNameIncomes,
		ElementGroups: []defaultElementSeed{
			{
				CustomName: "Operating Income",
				SubElementGroups: []defaultSubElementSeed{
					{
						CustomName: "Sales",
						DetailedGroups: []defaultDetailedSeed{
							{
								CustomName: "Product Sales",
								Accounts: []defaultAccountSeed{
									{Name: "Sales Revenue", AccountType: AccountTypeRevenue, CashflowActivity: CashflowActivityOperating, SystemRole: AccountRoleSalesRevenue},
								},
							},
						},
					},
				},
			},
		},
	},
	{
		Name: GroupNameExpenses,
		ElementGroups: []defaultElementSeed{
			{
				CustomName: "Operating Expenses",
				SubElementGroups: []defaultSubElementSeed{
					{
						CustomName: "General & Administrative",
						DetailedGroups: []defaultDetailedSeed{
							{
								CustomName: "Office Expenses",
								Accounts: []defaultAccountSeed{
									{Name: "General Expenses", AccountType: AccountTypeExpense, CashflowActivity: CashflowActivityOperating},
								},
							},
						},
					},
				},
			},
		},
	},
}

// CreateDefaultChartOfAccounts seeds the 4-level starter hierarchy and its
// role-tagged system accounts inside the caller's transaction.
func CreateDefaultChartOfAccounts(tx *gorm.DB, ctx context.Context, tenantId string) ([]*Account, error) {
	var accounts []*Account
	for mi, mSeed := range defaultChart {
		main := MainGroup{
			TenantId: tenantId,
			Code:     fmt.Sprintf("%s%02d", groupSlug(mSeed.Name, ""), mi+1),
			Name:     mSeed.Name,
		}
		if err := tx.WithContext(ctx).Create(&main).Error; err != nil {
			return nil, err
		}
		for ei, eSeed := range mSeed.ElementGroups {
			element := ElementGroup{
				TenantId:    tenantId,
				MainGroupId: main.ID,
				Code:        fmt.Sprintf("%s%s%02d", main.Code, groupSlug(GroupNameCustom, eSeed.CustomName), ei+1),
				Name:        GroupNameCustom,
				CustomName:  eSeed.CustomName,
			}
			if err := tx.WithContext(ctx).Create(&element).Error; err != nil {
				return nil, err
			}
			for si, sSeed := range eSeed.SubElementGroups {
				sub := SubElementGroup{
					TenantId:       tenantId,
					ElementGroupId: element.ID,
					Code:           fmt.Sprintf("%s%s%02d", element.Code, groupSlug(GroupNameCustom, sSeed.CustomName), si+1),
					Name:           GroupNameCustom,
					CustomName:     sSeed.CustomName,
				}
				if err := tx.WithContext(ctx).Create(&sub).Error; err != nil {
					return nil, err
				}
				for di, dSeed := range sSeed.DetailedGroups {
					detailed := DetailedGroup{
						TenantId:          tenantId,
						SubElementGroupId: sub.ID,
						Code:              fmt.Sprintf("%s%s%02d", sub.Code, groupSlug(GroupNameCustom, dSeed.CustomName), di+1),
						Name:              GroupNameCustom,
						CustomName:        dSeed.CustomName,
					}
					if err := tx.WithContext(ctx).Create(&detailed).Error; err != nil {
						return nil, err
					}
					for ai, aSeed := range dSeed.Accounts {
						account := Account{
							TenantId:         tenantId,
							DetailedGroupId:  detailed.ID,
							AccountCode:      fmt.Sprintf("%s-%03d", detailed.Code, ai+1),
							Name:             aSeed.Name,
							AccountType:      aSeed.AccountType,
							CashflowActivity: aSeed.CashflowActivity,
							OpeningBalance:   decimal.Zero,
							CurrentBalance:   decimal.Zero,
							SystemRole:       aSeed.SystemRole,
							IsActive:         utils.NewTrue(),
						}
						if err := tx.WithContext(ctx).Create(&account).Error; err != nil {
							return nil, err
						}
						accounts = append(accounts, &account)
					}
				}
			}
		}
	}
	return accounts, nil
}

// SeedTenantDefaults provisions a fresh tenant: the default chart plus its
// system accounts, in one transaction. Safe to call once per tenant.
func SeedTenantDefaults(ctx context.Context, tenantId string) ([]*Account, error) {
	count, err := utils.ResourceCountWhere[MainGroup](ctx, tenantId, "")
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("tenant %s already has a chart of accounts", tenantId)
	}
	db := config.GetDB()
	tx := db.Begin()
	accounts, err := CreateDefaultChartOfAccounts(tx, ctx, tenantId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	invalidateSystemAccountCache(tenantId)
	return accounts, nil
}
