package models

import (
	"context"
	"errors"
	"time"

	"github.com/praccloud/ledger_backend/config"
	"github.com/praccloud/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type JournalEntry struct {
	ID          int                `gorm:"primary_key" json:"id"`
	TenantId    string             `gorm:"index;not null" json:"tenant_id"`
	SequenceNo  decimal.Decimal    `gorm:"type:decimal(15);not null" json:"sequence_no"`
	EntryNumber string             `gorm:"size:255;not null" json:"entry_number"`
	EntryDate   time.Time          `gorm:"not null;index" json:"entry_date" binding:"required"`
	Reference   string             `gorm:"size:255" json:"reference"`
	// Typed back-reference to the document that produced this entry.
	SourceType  SourceDocumentType `gorm:"size:10;not null;default:'Manual';index" json:"source_type"`
	SourceId    int                `gorm:"index" json:"source_id"`
	Notes       string             `gorm:"type:text" json:"notes"`
	TotalAmount decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	IsPosted    *bool              `gorm:"not null;default:true" json:"is_posted"`
	// Soft delete only. Deleted entries are excluded from every balance but
	// never physically removed, preserving historical reports.
	IsDeleted *bool              `gorm:"not null;default:false" json:"is_deleted"`
	Lines     []JournalEntryLine `gorm:"foreignKey:JournalEntryId" json:"lines"`
	CreatedAt time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type JournalEntryLine struct {
	ID             int             `gorm:"primary_key" json:"id"`
	JournalEntryId int             `gorm:"index;not null" json:"journal_entry_id"`
	AccountId      int             `gorm:"index;not null" json:"account_id" binding:"required"`
	Description    string          `gorm:"size:255" json:"description"`
	DebitAmount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"debit_amount"`
	CreditAmount   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"credit_amount"`
	LineOrder      int             `gorm:"not null;default:0" json:"line_order"`
}

type NewJournalEntry struct {
	EntryDate  time.Time             `json:"entry_date" binding:"required"`
	Reference  string                `json:"reference"`
	SourceType SourceDocumentType    `json:"source_type"`
	SourceId   int                   `json:"source_id"`
	Notes      string                `json:"notes"`
	Lines      []NewJournalEntryLine `json:"lines" binding:"required"`
}

type NewJournalEntryLine struct {
	AccountId    int             `json:"account_id" binding:"required"`
	Description  string          `json:"description"`
	DebitAmount  decimal.Decimal `json:"debit_amount"`
	CreditAmount decimal.Decimal `json:"credit_amount"`
}

var ErrUnbalancedEntry = errors.New("journal entry debits and credits must balance")

// receiveJournalLines validates line shape and the balancing invariant:
// every accepted entry satisfies sum(debit) == sum(credit).
func receiveJournalLines(input *NewJournalEntry, journalEntryId int) ([]JournalEntryLine, decimal.Decimal, error) {
	lines := make([]JournalEntryLine, 0, len(input.Lines))
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for i, l := range input.Lines {
		if l.DebitAmount.IsNegative() || l.CreditAmount.IsNegative() {
			return nil, decimal.Zero, errors.New("debit and credit amounts cannot be negative")
		}
		if l.DebitAmount.IsZero() == l.CreditAmount.IsZero() {
			return nil, decimal.Zero, errors.New("either debit or credit must have value")
		}
		totalDebit = totalDebit.Add(l.DebitAmount)
		totalCredit = totalCredit.Add(l.CreditAmount)
		lines = append(lines, JournalEntryLine{
			JournalEntryId: journalEntryId,
			AccountId:      l.AccountId,
			Description:    l.Description,
			DebitAmount:    l.DebitAmount,
			CreditAmount:   l.CreditAmount,
			LineOrder:      i + 1,
		})
	}
	if len(lines) == 0 {
		return nil, decimal.Zero, errors.New("journal entry requires at least one line")
	}
	if !totalDebit.Equal(totalCredit) {
		return nil, decimal.Zero, ErrUnbalancedEntry
	}
	return lines, totalDebit, nil
}

// validate runs on the caller's transaction so the account lookup sees
// in-transaction writes instead of contending with them.
func (input *NewJournalEntry) validate(tx *gorm.DB, ctx context.Context, tenantId string) error {
	if input.EntryDate.IsZero() {
		return errors.New("entry date is required")
	}
	ids := make([]int, 0, len(input.Lines))
	for _, l := range input.Lines {
		ids = append(ids, l.AccountId)
	}
	unqIds := utils.UniqueSlice(ids)
	var count int64
	if err := tx.WithContext(ctx).Model(&Account{}).
		Where("tenant_id = ? AND id IN ? AND is_active = ?", tenantId, unqIds, true).
		Count(&count).Error; err != nil {
		return err
	}
	if count != int64(len(unqIds)) {
		return errors.New("line account not found")
	}
	return nil
}

// CreateJournalEntry inserts the entry and its lines as one unit and
// refreshes the display balance cache of the touched accounts.
func CreateJournalEntry(ctx context.Context, input *NewJournalEntry) (*JournalEntry, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	db := config.GetDB()
	tx := db.Begin()
	entry, err := createJournalEntryTx(tx, ctx, tenantId, input)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// DeleteJournalEntry is a soft delete: the entry stays on disk and drops out
// of every balance computation.
func DeleteJournalEntry(ctx context.Context, id int) (*JournalEntry, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	entry, err := utils.FetchModel[JournalEntry](ctx, tenantId, id, "Lines")
	if err != nil {
		return nil, err
	}
	if entry.IsDeleted != nil && *entry.IsDeleted {
		return entry, nil
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Model(entry).Update("is_deleted", true).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	accountIds := make([]int, 0, len(entry.Lines))
	for _, l := range entry.Lines {
		accountIds = append(accountIds, l.AccountId)
	}
	if err := refreshAccountBalances(tx, ctx, tenantId, accountIds); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// softDeleteJournalEntriesForSource reverses the postings of a document
// (invoice void, payment delete) without touching history.
func softDeleteJournalEntriesForSource(tx *gorm.DB, ctx context.Context, tenantId string, sourceType SourceDocumentType, sourceId int) ([]int, error) {
	var entries []*JournalEntry
	if err := tx.WithContext(ctx).Preload("Lines").
		Where("tenant_id = ? AND source_type = ? AND source_id = ? AND is_deleted = ?", tenantId, sourceType, sourceId, false).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	accountIds := make([]int, 0)
	for _, e := range entries {
		if err := tx.WithContext(ctx).Model(e).Update("is_deleted", true).Error; err != nil {
			return nil, err
		}
		for _, l := range e.Lines {
			accountIds = append(accountIds, l.AccountId)
		}
	}
	return accountIds, nil
}

type journalLineSums struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// sumJournalLines aggregates debit/credit over posted, non-deleted lines for
// one account, optionally bounded by [from, to].
func sumJournalLines(tx *gorm.DB, ctx context.Context, tenantId string, accountId int, from *time.Time, to *time.Time) (*journalLineSums, error) {
	type row struct {
		Debit  decimal.Decimal
		Credit decimal.Decimal
	}
	var r row
	dbCtx := tx.WithContext(ctx).
		Table("journal_entry_lines AS l").
		Joins("JOIN journal_entries AS e ON l.journal_entry_id = e.id").
		Where("e.tenant_id = ? AND e.is_posted = ? AND e.is_deleted = ?", tenantId, true, false).
		Where("l.account_id = ?", accountId).
		Select("COALESCE(SUM(l.debit_amount), 0) AS debit, COALESCE(SUM(l.credit_amount), 0) AS credit")
	if from != nil {
		dbCtx = dbCtx.Where("e.entry_date >= ?", *from)
	}
	if to != nil {
		dbCtx = dbCtx.Where("e.entry_date <= ?", *to)
	}
	if err := dbCtx.Scan(&r).Error; err != nil {
		return nil, err
	}
	return &journalLineSums{Debit: r.Debit, Credit: r.Credit}, nil
}

// AccountBalance derives the balance from journal lines using the
// type-dependent sign convention: asset/expense report debit-credit,
// liability/equity/revenue report credit-debit. The opening balance counts
// only for unbounded (since-inception) queries.
func AccountBalance(ctx context.Context, accountId int, from *time.Time, to *time.Time) (decimal.Decimal, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return decimal.Zero, errors.New("tenant id is required")
	}
	account, err := utils.FetchModel[Account](ctx, tenantId, accountId)
	if err != nil {
		return decimal.Zero, err
	}
	db := config.GetDB()
	sums, err := sumJournalLines(db, ctx, tenantId, accountId, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	balance := account.AccountType.BalanceFromSums(sums.Debit, sums.Credit)
	if from == nil {
		balance = balance.Add(account.OpeningBalance)
	}
	return balance, nil
}

// countJournalReferences counts non-deleted journal lines matching cond.
// Used to refuse deletes that would orphan ledger history.
func countJournalReferences(ctx context.Context, tenantId string, cond string, args ...interface{}) (int64, error) {
	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).
		Table("journal_entry_lines AS l").
		Joins("JOIN journal_entries AS e ON l.journal_entry_id = e.id").
		Where("e.tenant_id = ? AND e.is_deleted = ?", tenantId, false).
		Where(cond, args...).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// countSourceReferences counts every journal entry, live or reversed, that
// back-references a source document. Soft-deleted reversals still pin the row
// they point at, so they count.
func countSourceReferences(tx *gorm.DB, ctx context.Context, tenantId string, sourceType SourceDocumentType, sourceId int) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&JournalEntry{}).
		Where("tenant_id = ? AND source_type = ? AND source_id = ?", tenantId, sourceType, sourceId).
		Count(&count).Error
	return count, err
}

func GetJournalEntry(ctx context.Context, id int) (*JournalEntry, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	return utils.FetchModel[JournalEntry](ctx, tenantId, id, "Lines")
}

func GetJournalEntries(ctx context.Context, fromDate *time.Time, toDate *time.Time, sourceType *SourceDocumentType, limit int, offset int) ([]*JournalEntry, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	if limit <= 0 {
		limit = config.SearchLimit
	}
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Lines").
		Where("tenant_id = ? AND is_deleted = ?", tenantId, false)
	if fromDate != nil {
		dbCtx = dbCtx.Where("entry_date >= ?", *fromDate)
	}
	if toDate != nil {
		dbCtx = dbCtx.Where("entry_date <= ?", *toDate)
	}
	if sourceType != nil && *sourceType != "" {
		dbCtx = dbCtx.Where("source_type = ?", *sourceType)
	}
	var results []*JournalEntry
	if err := dbCtx.Order("entry_date DESC, id DESC").Limit(limit).Offset(offset).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
