package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/praccloud/ledger_backend/config"
	"github.com/praccloud/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Account struct {
	ID              int              `gorm:"primary_key" json:"id"`
	TenantId        string           `gorm:"index;not null" json:"tenant_id"`
	DetailedGroupId int              `gorm:"index;not null" json:"detailed_group_id" binding:"required"`
	AccountCode     string           `gorm:"index;size:50;not null" json:"account_code"`
	Name            string           `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Description     string           `gorm:"type:text" json:"description"`
	AccountType     AccountType      `gorm:"size:10;not null;index" json:"account_type" binding:"required"`
	CashflowActivity CashflowActivity `gorm:"size:16;index" json:"cashflow_activity"`
	OpeningBalance  decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"opening_balance"`
	// CurrentBalance is a display cache refreshed after postings. Balances
	// are always derived from journal lines; this column is never the source
	// of truth.
	CurrentBalance decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"current_balance"`
	SystemRole     AccountRole     `gorm:"index;size:8" json:"system_role"`
	IsActive       *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a Account) IsSystemAccount() bool {
	return a.SystemRole != AccountRoleNone
}

type NewAccount struct {
	DetailedGroupId  int              `json:"detailed_group_id" binding:"required"`
	Name             string           `json:"name" binding:"required"`
	Description      string           `json:"description"`
	AccountType      AccountType      `json:"account_type" binding:"required"`
	CashflowActivity CashflowActivity `json:"cashflow_activity"`
	OpeningBalance   decimal.Decimal  `json:"opening_balance"`
	SystemRole       AccountRole      `json:"system_role"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewAccount) validate(ctx context.Context, tenantId string, id int) error {
	if !input.AccountType.IsValid() {
		return errors.New("invalid account type")
	}
	if err := utils.ValidateResourceId[DetailedGroup](ctx, tenantId, input.DetailedGroupId); err != nil {
		return errors.New("detailed group not found")
	}
	// reactivation handles duplicates of inactive accounts; only active
	// duplicates are rejected
	count, err := utils.ResourceCountWhere[Account](ctx, tenantId, "name = ? AND is_active = ? AND NOT id = ?", input.Name, true, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("duplicate name")
	}
	return nil
}

// nextAccountCode derives the leaf code from the detailed group's composite
// code plus a zero-padded sequence, unique per tenant.
func nextAccountCode(ctx context.Context, tenantId string, group *DetailedGroup) (string, error) {
	count, err := utils.ResourceCountWhere[Account](ctx, tenantId, "detailed_group_id = ?", group.ID)
	if err != nil {
		return "", err
	}
	seq := count + 1
	for {
		code := fmt.Sprintf("%s-%03d", group.Code, seq)
		dup, err := utils.ResourceCountWhere[Account](ctx, tenantId, "account_code = ?", code)
		if err != nil {
			return "", err
		}
		if dup == 0 {
			return code, nil
		}
		seq++
	}
}

// CreateAccount creates a leaf account. A previously deactivated account
// with the same name is reactivated instead, so its code is not orphaned.
func CreateAccount(ctx context.Context, input *NewAccount) (*Account, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	if err := input.validate(ctx, tenantId, 0); err != nil {
		return nil, err
	}

	db := config.GetDB()

	// reactivate a soft-deleted account of the same name
	var dormant Account
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND name = ? AND is_active = ?", tenantId, input.Name, false).
		First(&dormant).Error
	if err == nil {
		updates := map[string]interface{}{
			"IsActive":         true,
			"Description":      input.Description,
			"DetailedGroupId":  input.DetailedGroupId,
			"AccountType":      input.AccountType,
			"CashflowActivity": input.CashflowActivity,
		}
		if err := db.WithContext(ctx).Model(&dormant).Updates(updates).Error; err != nil {
			return nil, err
		}
		invalidateSystemAccountCache(tenantId)
		return &dormant, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	group, err := utils.FetchModel[DetailedGroup](ctx, tenantId, input.DetailedGroupId)
	if err != nil {
		return nil, errors.New("detailed group not found")
	}
	code, err := nextAccountCode(ctx, tenantId, group)
	if err != nil {
		return nil, err
	}
	account := Account{
		TenantId:         tenantId,
		DetailedGroupId:  group.ID,
		AccountCode:      code,
		Name:             input.Name,
		Description:      input.Description,
		AccountType:      input.AccountType,
		CashflowActivity: input.CashflowActivity,
		OpeningBalance:   input.OpeningBalance,
		CurrentBalance:   input.OpeningBalance,
		SystemRole:       input.SystemRole,
		IsActive:         utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, err
	}
	invalidateSystemAccountCache(tenantId)
	return &account, nil
}

func UpdateAccount(ctx context.Context, id int, input *NewAccount) (*Account, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	if err := input.validate(ctx, tenantId, id); err != nil {
		return nil, err
	}
	account, err := utils.FetchModel[Account](ctx, tenantId, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"Name":        input.Name,
		"Description": input.Description,
	}
	// system accounts keep their classification; ad-hoc retyping would break
	// automated postings
	if !account.IsSystemAccount() {
		updates["DetailedGroupId"] = input.DetailedGroupId
		updates["AccountType"] = input.AccountType
		updates["CashflowActivity"] = input.CashflowActivity
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(account).Updates(updates).Error; err != nil {
		return nil, err
	}
	invalidateSystemAccountCache(tenantId)
	return account, nil
}

// MarkAccountActive toggles the soft-delete flag.
func MarkAccountActive(ctx context.Context, id int, isActive bool) (*Account, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	account, err := utils.FetchModel[Account](ctx, tenantId, id)
	if err != nil {
		return nil, err
	}
	if account.IsSystemAccount() && !isActive {
		return nil, errors.New("cannot deactivate a system account")
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(account).Updates(Account{IsActive: &isActive}).Error; err != nil {
		return nil, err
	}
	return account, nil
}

// DeleteAccount hard-deletes a leaf. Refused while any non-deleted journal
// line references the account; the error carries the blocking count.
func DeleteAccount(ctx context.Context, id int) (*Account, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	account, err := utils.FetchModel[Account](ctx, tenantId, id)
	if err != nil {
		return nil, err
	}
	if account.IsSystemAccount() {
		return nil, errors.New("cannot delete a system account")
	}

	count, err := countJournalReferences(ctx, tenantId, "l.account_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewDependencyError("account", count)
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(account).Error; err != nil {
		return nil, err
	}
	invalidateSystemAccountCache(tenantId)
	return account, nil
}

func GetAccount(ctx context.Context, id int) (*Account, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	return utils.FetchModel[Account](ctx, tenantId, id)
}

func GetAccounts(ctx context.Context, name *string, code *string) ([]*Account, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	db := config.GetDB()
	var results []*Account
	dbCtx := db.WithContext(ctx).Where("tenant_id = ?", tenantId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if code != nil && len(*code) > 0 {
		dbCtx = dbCtx.Where("account_code LIKE ?", "%"+*code+"%")
	}
	if err := dbCtx.Order("account_code").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

/* system account resolution */

func systemAccountCacheKey(tenantId string) string {
	return "SystemAccounts:" + tenantId
}

func invalidateSystemAccountCache(tenantId string) {
	_ = config.RemoveRedisKey(systemAccountCacheKey(tenantId))
}

// GetSystemAccounts resolves the tenant's role -> account id map used by
// automated postings (AR, tax payable, sales revenue, cash). Cached in redis
// when available.
func GetSystemAccounts(ctx context.Context, tenantId string) (map[AccountRole]int, error) {
	var sysAccounts map[AccountRole]int

	exists, err := config.GetRedisObject(systemAccountCacheKey(tenantId), &sysAccounts)
	if err != nil {
		return nil, err
	}
	if !exists {
		var accounts []*Account
		db := config.GetDB()
		if err := db.WithContext(ctx).
			Select("id", "system_role").
			Where("tenant_id = ?", tenantId).
			Where("system_role <> ''").
			Find(&accounts).Error; err != nil {
			return nil, err
		}
		sysAccounts = make(map[AccountRole]int)
		for _, acc := range accounts {
			sysAccounts[acc.SystemRole] = acc.ID
		}
		if err := config.SetRedisObject(systemAccountCacheKey(tenantId), &sysAccounts, 0); err != nil {
			return nil, err
		}
	}
	return sysAccounts, nil
}

// refreshAccountBalances recomputes the display cache from journal lines for
// the given accounts, inside the caller's transaction.
func refreshAccountBalances(tx *gorm.DB, ctx context.Context, tenantId string, accountIds []int) error {
	for _, id := range utils.UniqueSlice(accountIds) {
		var account Account
		if err := tx.WithContext(ctx).Where("tenant_id = ?", tenantId).First(&account, id).Error; err != nil {
			return err
		}
		sums, err := sumJournalLines(tx, ctx, tenantId, id, nil, nil)
		if err != nil {
			return err
		}
		balance := account.OpeningBalance.Add(account.AccountType.BalanceFromSums(sums.Debit, sums.Credit))
		if err := tx.WithContext(ctx).Model(&account).
			Update("current_balance", balance).Error; err != nil {
			return err
		}
	}
	return nil
}
