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
	"gorm.io/gorm/clause"
)

type Invoice struct {
	ID              int               `gorm:"primary_key" json:"id"`
	TenantId        string            `gorm:"index;not null" json:"tenant_id"`
	CustomerName    string            `gorm:"size:255;not null" json:"customer_name" binding:"required"`
	SequenceNo      decimal.Decimal   `gorm:"type:decimal(15);not null" json:"sequence_no"`
	InvoiceNumber   string            `gorm:"size:255;not null" json:"invoice_number"`
	ReferenceNumber string            `gorm:"size:255;default:null" json:"reference_number"`
	InvoiceDate     time.Time         `gorm:"not null" json:"invoice_date" binding:"required"`
	DueDate         *time.Time        `json:"due_date"`
	Notes           string            `gorm:"type:text;default:null" json:"notes"`
	CurrentStatus   InvoiceStatus     `gorm:"size:20;not null;default:'draft'" json:"current_status"`
	LineItems       []InvoiceLineItem `gorm:"foreignKey:InvoiceId" json:"line_items"`
	Subtotal        decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	TotalDiscount   decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"total_discount"`
	TotalTax        decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"total_tax"`
	Total           decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"total"`
	AmountPaid      decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"amount_paid"`
	AmountDue       decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"amount_due"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type InvoiceLineItem struct {
	ID             int             `gorm:"primary_key" json:"id"`
	InvoiceId      int             `gorm:"index;not null" json:"invoice_id"`
	Description    string          `gorm:"size:255;not null" json:"description" binding:"required"`
	Quantity       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity" binding:"required"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	DiscountRate   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_rate"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	TaxRate        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_rate"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	LineOrder      int             `gorm:"not null;default:0" json:"line_order"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewInvoice struct {
	CustomerName    string               `json:"customer_name" binding:"required"`
	ReferenceNumber string               `json:"reference_number"`
	InvoiceDate     time.Time            `json:"invoice_date" binding:"required"`
	DueDate         *time.Time           `json:"due_date"`
	Notes           string               `json:"notes"`
	LineItems       []NewInvoiceLineItem `json:"line_items" binding:"required"`
}

type NewInvoiceLineItem struct {
	Description  string          `json:"description" binding:"required"`
	Quantity     decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
}

func (input *NewInvoice) validate() error {
	if input.CustomerName == "" {
		return errors.New("customer name is required")
	}
	if input.InvoiceDate.IsZero() {
		return errors.New("invoice date is required")
	}
	if len(input.LineItems) == 0 {
		return errors.New("invoice requires at least one line item")
	}
	for _, item := range input.LineItems {
		if item.Quantity.IsNegative() || item.UnitPrice.IsNegative() {
			return errors.New("quantity and unit price cannot be negative")
		}
		if !utils.RateInRange(item.DiscountRate) {
			return errors.New("discount rate must be between 0 and 1")
		}
		if !utils.RateInRange(item.TaxRate) {
			return errors.New("tax rate must be between 0 and 1")
		}
	}
	return nil
}

// receiveInvoiceLineItems computes per-line amounts. Discount applies to the
// line base first; tax applies to the discounted base.
func receiveInvoiceLineItems(input *NewInvoice, invoiceId int) []InvoiceLineItem {
	items := make([]InvoiceLineItem, 0, len(input.LineItems))
	for i, item := range input.LineItems {
		base := utils.CalculateLineBase(item.Quantity, item.UnitPrice)
		discountAmount := utils.CalculateLineDiscountAmount(base, item.DiscountRate)
		taxAmount := utils.CalculateLineTaxAmount(base, discountAmount, item.TaxRate)
		items = append(items, InvoiceLineItem{
			InvoiceId:      invoiceId,
			Description:    item.Description,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			DiscountRate:   item.DiscountRate,
			DiscountAmount: discountAmount,
			TaxRate:        item.TaxRate,
			TaxAmount:      taxAmount,
			TotalAmount:    utils.CalculateLineTotal(item.Quantity, item.UnitPrice, item.DiscountRate, item.TaxRate),
			LineOrder:      i + 1,
		})
	}
	return items
}

// recomputeInvoiceTotals rebuilds every header total from the full line item
// set. There is no incremental adjustment path, so totals can never drift
// from the lines they summarize.
func recomputeInvoiceTotals(invoice *Invoice) {
	subtotal := decimal.Zero
	totalDiscount := decimal.Zero
	totalTax := decimal.Zero
	for _, item := range invoice.LineItems {
		subtotal = subtotal.Add(utils.CalculateLineBase(item.Quantity, item.UnitPrice))
		totalDiscount = totalDiscount.Add(item.DiscountAmount)
		totalTax = totalTax.Add(item.TaxAmount)
	}
	invoice.Subtotal = subtotal
	invoice.TotalDiscount = totalDiscount
	invoice.TotalTax = totalTax
	invoice.Total = subtotal.Sub(totalDiscount).Add(totalTax)
	invoice.AmountDue = invoice.Total.Sub(invoice.AmountPaid)
	if invoice.AmountDue.IsNegative() {
		invoice.AmountDue = decimal.Zero
	}
}

func CreateInvoice(ctx context.Context, input *NewInvoice) (*Invoice, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	seqNo, err := utils.GetSequence[Invoice](ctx, tenantId)
	if err != nil {
		return nil, err
	}
	invoice := Invoice{
		TenantId:        tenantId,
		CustomerName:    input.CustomerName,
		SequenceNo:      decimal.NewFromInt(seqNo),
		InvoiceNumber:   fmt.Sprintf("INV-%06d", seqNo),
		ReferenceNumber: input.ReferenceNumber,
		InvoiceDate:     input.InvoiceDate,
		DueDate:         input.DueDate,
		Notes:           input.Notes,
		CurrentStatus:   InvoiceStatusDraft,
		LineItems:       receiveInvoiceLineItems(input, 0),
		AmountPaid:      decimal.Zero,
	}
	recomputeInvoiceTotals(&invoice)

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// UpdateInvoice replaces the invoice's line item set and recomputes totals in
// one transaction. Only draft invoices can change their lines.
func UpdateInvoice(ctx context.Context, id int, input *NewInvoice) (*Invoice, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	db := config.GetDB()
	tx := db.Begin()
	invoice, err := lockInvoiceTx(tx, ctx, tenantId, id, "LineItems")
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if invoice.CurrentStatus != InvoiceStatusDraft {
		tx.Rollback()
		return nil, fmt.Errorf("cannot edit invoice in %s status", invoice.CurrentStatus)
	}
	if err := tx.WithContext(ctx).Where("invoice_id = ?", invoice.ID).Delete(&InvoiceLineItem{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	invoice.CustomerName = input.CustomerName
	invoice.ReferenceNumber = input.ReferenceNumber
	invoice.InvoiceDate = input.InvoiceDate
	invoice.DueDate = input.DueDate
	invoice.Notes = input.Notes
	invoice.LineItems = receiveInvoiceLineItems(input, invoice.ID)
	recomputeInvoiceTotals(invoice)
	if err := tx.WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: true}).Save(invoice).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

// lockInvoiceTx re-reads the invoice inside the caller's transaction with a
// row lock, so concurrent mutations serialize on the owning row. The sqlite
// test driver drops the locking clause; mysql emits FOR UPDATE.
func lockInvoiceTx(tx *gorm.DB, ctx context.Context, tenantId string, id int, associations ...string) (*Invoice, error) {
	dbCtx := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ?", tenantId)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var invoice Invoice
	if err := dbCtx.First(&invoice, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &invoice, nil
}

// transitionInvoice moves an invoice through its status machine and rejects
// transitions the machine does not define. The UPDATE is guarded on the old
// status so a concurrent transition makes the slower writer fail instead of
// silently overwriting.
func transitionInvoice(ctx context.Context, tx *gorm.DB, invoice *Invoice, next InvoiceStatus) error {
	prev := invoice.CurrentStatus
	if !prev.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, prev, next)
	}
	result := tx.WithContext(ctx).Model(invoice).
		Where("current_status = ?", prev).
		Update("current_status", next)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, prev, next)
	}
	invoice.CurrentStatus = next
	return nil
}

// MarkInvoiceSent posts the invoice to the ledger: debit receivable for the
// total, credit revenue for the net amount, credit tax payable for the tax.
func MarkInvoiceSent(ctx context.Context, id int) (*Invoice, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	systemAccounts, err := GetSystemAccounts(ctx, tenantId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	invoice, err := lockInvoiceTx(tx, ctx, tenantId, id, "LineItems")
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	lines, err := invoicePostingLines(invoice, systemAccounts)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := transitionInvoice(ctx, tx, invoice, InvoiceStatusSent); err != nil {
		tx.Rollback()
		return nil, err
	}
	entry := &NewJournalEntry{
		EntryDate:  invoice.InvoiceDate,
		Reference:  invoice.InvoiceNumber,
		SourceType: SourceDocumentTypeInvoice,
		SourceId:   invoice.ID,
		Lines:      lines,
	}
	if _, err := createJournalEntryTx(tx, ctx, tenantId, entry); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

func CancelInvoice(ctx context.Context, id int) (*Invoice, error) {
	return retireInvoice(ctx, id, InvoiceStatusCanceled)
}

// VoidInvoice retires a posted invoice and reverses its ledger entries.
func VoidInvoice(ctx context.Context, id int) (*Invoice, error) {
	return retireInvoice(ctx, id, InvoiceStatusVoid)
}

func retireInvoice(ctx context.Context, id int, next InvoiceStatus) (*Invoice, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	db := config.GetDB()
	tx := db.Begin()
	invoice, err := lockInvoiceTx(tx, ctx, tenantId, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := transitionInvoice(ctx, tx, invoice, next); err != nil {
		tx.Rollback()
		return nil, err
	}
	accountIds, err := softDeleteJournalEntriesForSource(tx, ctx, tenantId, SourceDocumentTypeInvoice, invoice.ID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := refreshAccountBalances(tx, ctx, tenantId, accountIds); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

// MarkOverdueInvoices flips sent invoices past their due date to overdue.
// Runs as a periodic sweep; asOf is normally time.Now().
func MarkOverdueInvoices(ctx context.Context, asOf time.Time) (int64, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return 0, errors.New("tenant id is required")
	}
	db := config.GetDB()
	result := db.WithContext(ctx).Model(&Invoice{}).
		Where("tenant_id = ? AND current_status = ? AND due_date IS NOT NULL AND due_date < ?",
			tenantId, InvoiceStatusSent, asOf).
		Update("current_status", InvoiceStatusOverdue)
	return result.RowsAffected, result.Error
}

// DeleteInvoice hard-deletes a draft or canceled invoice. Any journal entry
// referencing the invoice refuses the delete with the reference count; a
// voided invoice keeps its soft-deleted reversal entries, so it stays too.
func DeleteInvoice(ctx context.Context, id int) (*Invoice, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	db := config.GetDB()
	tx := db.Begin()
	invoice, err := lockInvoiceTx(tx, ctx, tenantId, id, "LineItems")
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	refCount, err := countSourceReferences(tx, ctx, tenantId, SourceDocumentTypeInvoice, invoice.ID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if refCount > 0 {
		tx.Rollback()
		return nil, utils.NewDependencyError("invoice", refCount)
	}
	if err := tx.WithContext(ctx).Where("invoice_id = ?", invoice.ID).Delete(&InvoiceLineItem{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(invoice).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

func GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	return utils.FetchModel[Invoice](ctx, tenantId, id, "LineItems")
}

func GetInvoices(ctx context.Context, status *InvoiceStatus, limit int, offset int) ([]*Invoice, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	if limit <= 0 {
		limit = config.SearchLimit
	}
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("LineItems").Where("tenant_id = ?", tenantId)
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("current_status = ?", *status)
	}
	var results []*Invoice
	if err := dbCtx.Order("invoice_date DESC, id DESC").Limit(limit).Offset(offset).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
