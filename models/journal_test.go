package models_test

import (
	"testing"
	"time"

	"github.com/praccloud/ledger_backend/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manualEntry(accountLines ...models.NewJournalEntryLine) *models.NewJournalEntry {
	return &models.NewJournalEntry{
		EntryDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Lines:     accountLines,
	}
}

func TestCreateJournalEntryRejectsUnbalanced(t *testing.T) {
	openTestDB(t)
	ctx, tenantId := newTenantContext(t)
	cash := accountByRole(t, ctx, tenantId, models.AccountRoleCash)
	tax := accountByRole(t, ctx, tenantId, models.AccountRoleTaxPayable)

	_, err := models.CreateJournalEntry(ctx, manualEntry(
		models.NewJournalEntryLine{AccountId: cash.ID, DebitAmount: decimal.NewFromInt(100)},
		models.NewJournalEntryLine{AccountId: tax.ID, CreditAmount: decimal.NewFromInt(90)},
	))
	require.ErrorIs(t, err, models.ErrUnbalancedEntry)
}

func TestCreateJournalEntryRejectsBadLines(t *testing.T) {
	openTestDB(t)
	ctx, tenantId := newTenantContext(t)
	cash := accountByRole(t, ctx, tenantId, models.AccountRoleCash)
	tax := accountByRole(t, ctx, tenantId, models.AccountRoleTaxPayable)

	// both sides set on one line
	_, err := models.CreateJournalEntry(ctx, manualEntry(
		models.NewJournalEntryLine{AccountId: cash.ID, DebitAmount: decimal.NewFromInt(50), CreditAmount: decimal.NewFromInt(50)},
		models.NewJournalEntryLine{AccountId: tax.ID, CreditAmount: decimal.NewFromInt(0)},
	))
	require.Error(t, err)

	// negative amount
	_, err = models.CreateJournalEntry(ctx, manualEntry(
		models.NewJournalEntryLine{AccountId: cash.ID, DebitAmount: decimal.NewFromInt(-10)},
		models.NewJournalEntryLine{AccountId: tax.ID, CreditAmount: decimal.NewFromInt(-10)},
	))
	require.Error(t, err)

	// no lines
	_, err = models.CreateJournalEntry(ctx, manualEntry())
	require.Error(t, err)
}

func TestCreateJournalEntryRejectsForeignAccount(t *testing.T) {
	openTestDB(t)
	ctxA, tenantA := newTenantContext(t)
	ctxB, tenantB := newTenantContext(t)

	cashA := accountByRole(t, ctxA, tenantA, models.AccountRoleCash)
	cashB := accountByRole(t, ctxB, tenantB, models.AccountRoleCash)

	_, err := models.CreateJournalEntry(ctxA, manualEntry(
		models.NewJournalEntryLine{AccountId: cashA.ID, DebitAmount: decimal.NewFromInt(10)},
		models.NewJournalEntryLine{AccountId: cashB.ID, CreditAmount: decimal.NewFromInt(10)},
	))
	require.Error(t, err)
}

func TestCreateJournalEntryRejectsInactiveAccount(t *testing.T) {
	openTestDB(t)
	ctx, tenantId := newTenantContext(t)
	cash := accountByRole(t, ctx, tenantId, models.AccountRoleCash)

	detailed := expenseDetailedGroup(t, ctx)
	travel, err := models.CreateAccount(ctx, &models.NewAccount{
		DetailedGroupId: detailed.ID,
		Name:            "Travel",
		AccountType:     models.AccountTypeExpense,
	})
	require.NoError(t, err)
	_, err = models.MarkAccountActive(ctx, travel.ID, false)
	require.NoError(t, err)

	_, err = models.CreateJournalEntry(ctx, manualEntry(
		models.NewJournalEntryLine{AccountId: travel.ID, DebitAmount: decimal.NewFromInt(10)},
		models.NewJournalEntryLine{AccountId: cash.ID, CreditAmount: decimal.NewFromInt(10)},
	))
	require.Error(t, err)
}

func TestAccountBalanceTracksNormalBalance(t *testing.T) {
	openTestDB(t)
	ctx, tenantId := newTenantContext(t)
	cash := accountByRole(t, ctx, tenantId, models.AccountRoleCash)
	tax := accountByRole(t, ctx, tenantId, models.AccountRoleTaxPayable)

	_, err := models.CreateJournalEntry(ctx, manualEntry(
		models.NewJournalEntryLine{AccountId: cash.ID, DebitAmount: decimal.NewFromInt(100)},
		models.NewJournalEntryLine{AccountId: tax.ID, CreditAmount: decimal.NewFromInt(100)},
	))
	require.NoError(t, err)

	// cash is debit-normal, tax payable credit-normal; both rise by 100
	cashBalance, err := models.AccountBalance(ctx, cash.ID, nil, nil)
	require.NoError(t, err)
	assert.True(t, cashBalance.Equal(decimal.NewFromInt(100)), cashBalance.String())
	taxBalance, err := models.AccountBalance(ctx, tax.ID, nil, nil)
	require.NoError(t, err)
	assert.True(t, taxBalance.Equal(decimal.NewFromInt(100)), taxBalance.String())

	// paying down the liability moves both back
	_, err = models.CreateJournalEntry(ctx, manualEntry(
		models.NewJournalEntryLine{AccountId: tax.ID, DebitAmount: decimal.NewFromInt(40)},
		models.NewJournalEntryLine{AccountId: cash.ID, CreditAmount: decimal.NewFromInt(40)},
	))
	require.NoError(t, err)

	cashBalance, err = models.AccountBalance(ctx, cash.ID, nil, nil)
	require.NoError(t, err)
	assert.True(t, cashBalance.Equal(decimal.NewFromInt(60)), cashBalance.String())
	taxBalance, err = models.AccountBalance(ctx, tax.ID, nil, nil)
	require.NoError(t, err)
	assert.True(t, taxBalance.Equal(decimal.NewFromInt(60)), taxBalance.String())
}

func TestAccountBalanceDateBounds(t *testing.T) {
	openTestDB(t)
	ctx, tenantId := newTenantContext(t)
	cash := accountByRole(t, ctx, tenantId, models.AccountRoleCash)
	tax := accountByRole(t, ctx, tenantId, models.AccountRoleTaxPayable)

	post := func(day int, amount int64) {
		t.Helper()
		_, err := models.CreateJournalEntry(ctx, &models.NewJournalEntry{
			EntryDate: time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC),
			Lines: []models.NewJournalEntryLine{
				{AccountId: cash.ID, DebitAmount: decimal.NewFromInt(amount)},
				{AccountId: tax.ID, CreditAmount: decimal.NewFromInt(amount)},
			},
		})
		require.NoError(t, err)
	}
	post(1, 10)
	post(15, 20)
	post(30, 40)

	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	balance, err := models.AccountBalance(ctx, cash.ID, &from, &to)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(20)), balance.String())

	balance, err = models.AccountBalance(ctx, cash.ID, nil, &to)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(30)), balance.String())
}

func TestAccountBalanceIncludesOpeningOnlyUnbounded(t *testing.T) {
	openTestDB(t)
	ctx, _ := newTenantContext(t)

	detailed := expenseDetailedGroup(t, ctx)
	account, err := models.CreateAccount(ctx, &models.NewAccount{
		DetailedGroupId: detailed.ID,
		Name:            "Prepaid Rent",
		AccountType:     models.AccountTypeAsset,
		OpeningBalance:  decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	balance, err := models.AccountBalance(ctx, account.ID, nil, nil)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(500)), balance.String())

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	balance, err = models.AccountBalance(ctx, account.ID, &from, nil)
	require.NoError(t, err)
	assert.True(t, balance.IsZero(), balance.String())
}

func TestDeleteJournalEntryExcludesFromBalances(t *testing.T) {
	openTestDB(t)
	ctx, tenantId := newTenantContext(t)
	cash := accountByRole(t, ctx, tenantId, models.AccountRoleCash)
	tax := accountByRole(t, ctx, tenantId, models.AccountRoleTaxPayable)

	entry, err := models.CreateJournalEntry(ctx, manualEntry(
		models.NewJournalEntryLine{AccountId: cash.ID, DebitAmount: decimal.NewFromInt(100)},
		models.NewJournalEntryLine{AccountId: tax.ID, CreditAmount: decimal.NewFromInt(100)},
	))
	require.NoError(t, err)

	deleted, err := models.DeleteJournalEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, *deleted.IsDeleted || deleted.ID == entry.ID)

	balance, err := models.AccountBalance(ctx, cash.ID, nil, nil)
	require.NoError(t, err)
	assert.True(t, balance.IsZero(), balance.String())

	// display cache refreshed too
	fetched, err := models.GetAccount(ctx, cash.ID)
	require.NoError(t, err)
	assert.True(t, fetched.CurrentBalance.IsZero(), fetched.CurrentBalance.String())

	// the entry survives as a soft-deleted row
	kept, err := models.GetJournalEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, *kept.IsDeleted)
}

func TestJournalEntryNumbering(t *testing.T) {
	openTestDB(t)
	ctx, tenantId := newTenantContext(t)
	cash := accountByRole(t, ctx, tenantId, models.AccountRoleCash)
	tax := accountByRole(t, ctx, tenantId, models.AccountRoleTaxPayable)

	first, err := models.CreateJournalEntry(ctx, manualEntry(
		models.NewJournalEntryLine{AccountId: cash.ID, DebitAmount: decimal.NewFromInt(10)},
		models.NewJournalEntryLine{AccountId: tax.ID, CreditAmount: decimal.NewFromInt(10)},
	))
	require.NoError(t, err)
	assert.Equal(t, "JE-000001", first.EntryNumber)

	second, err := models.CreateJournalEntry(ctx, manualEntry(
		models.NewJournalEntryLine{AccountId: cash.ID, DebitAmount: decimal.NewFromInt(10)},
		models.NewJournalEntryLine{AccountId: tax.ID, CreditAmount: decimal.NewFromInt(10)},
	))
	require.NoError(t, err)
	assert.Equal(t, "JE-000002", second.EntryNumber)
	assert.True(t, second.TotalAmount.Equal(decimal.NewFromInt(10)))
}

func TestGetJournalEntriesFilters(t *testing.T) {
	openTestDB(t)
	ctx, tenantId := newTenantContext(t)
	cash := accountByRole(t, ctx, tenantId, models.AccountRoleCash)
	tax := accountByRole(t, ctx, tenantId, models.AccountRoleTaxPayable)

	for _, day := range []int{5, 25} {
		_, err := models.CreateJournalEntry(ctx, &models.NewJournalEntry{
			EntryDate: time.Date(2026, 4, day, 0, 0, 0, 0, time.UTC),
			Lines: []models.NewJournalEntryLine{
				{AccountId: cash.ID, DebitAmount: decimal.NewFromInt(5)},
				{AccountId: tax.ID, CreditAmount: decimal.NewFromInt(5)},
			},
		})
		require.NoError(t, err)
	}

	from := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	entries, err := models.GetJournalEntries(ctx, &from, nil, nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Lines, 2)

	manual := models.SourceDocumentTypeManual
	entries, err = models.GetJournalEntries(ctx, nil, nil, &manual, 0, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
