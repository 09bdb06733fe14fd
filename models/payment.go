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

type Payment struct {
	ID            int             `gorm:"primary_key" json:"id"`
	TenantId      string          `gorm:"index;not null" json:"tenant_id"`
	InvoiceId     int             `gorm:"index;not null" json:"invoice_id" binding:"required"`
	SequenceNo    decimal.Decimal `gorm:"type:decimal(15);not null" json:"sequence_no"`
	PaymentNumber string          `gorm:"size:255;not null" json:"payment_number"`
	PaymentDate   time.Time       `gorm:"not null" json:"payment_date" binding:"required"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount" binding:"required"`
	PaymentMethod PaymentMethod   `gorm:"size:20;not null;default:'cash'" json:"payment_method"`
	Reference     string          `gorm:"size:255;default:null" json:"reference"`
	Notes         string          `gorm:"type:text;default:null" json:"notes"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPayment struct {
	InvoiceId     int             `json:"invoice_id" binding:"required"`
	PaymentDate   time.Time       `json:"payment_date" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Reference     string          `json:"reference"`
	Notes         string          `json:"notes"`
}

func (input *NewPayment) validate() error {
	if input.InvoiceId <= 0 {
		return errors.New("invoice id is required")
	}
	if input.PaymentDate.IsZero() {
		return errors.New("payment date is required")
	}
	if !input.Amount.IsPositive() {
		return errors.New("payment amount must be positive")
	}
	return nil
}

// payableStatuses are the invoice states that accept a payment.
var payableStatuses = map[InvoiceStatus]bool{
	InvoiceStatusSent:          true,
	InvoiceStatusPartiallyPaid: true,
	InvoiceStatusOverdue:       true,
}

// statusForPaidAmount derives the reconciliation status from the paid total.
// Overpayment still lands on paid. At zero paid the invoice falls back to
// overdue when its due date has passed, otherwise to sent.
func statusForPaidAmount(invoice *Invoice) InvoiceStatus {
	switch {
	case invoice.AmountPaid.GreaterThanOrEqual(invoice.Total):
		return InvoiceStatusPaid
	case invoice.AmountPaid.IsPositive():
		return InvoiceStatusPartiallyPaid
	case invoice.CurrentStatus == InvoiceStatusOverdue:
		return InvoiceStatusOverdue
	case invoice.DueDate != nil && invoice.DueDate.Before(time.Now()):
		return InvoiceStatusOverdue
	default:
		return InvoiceStatusSent
	}
}

// applyPaidDelta moves the invoice's paid amount by delta and follows the
// derived status transition inside the caller's transaction.
func applyPaidDelta(tx *gorm.DB, ctx context.Context, invoice *Invoice, delta decimal.Decimal) error {
	invoice.AmountPaid = invoice.AmountPaid.Add(delta)
	if invoice.AmountPaid.IsNegative() {
		return errors.New("paid amount cannot go negative")
	}
	invoice.AmountDue = invoice.Total.Sub(invoice.AmountPaid)
	if invoice.AmountDue.IsNegative() {
		invoice.AmountDue = decimal.Zero
	}
	next := statusForPaidAmount(invoice)
	if next != invoice.CurrentStatus {
		if err := transitionInvoice(ctx, tx, invoice, next); err != nil {
			return err
		}
	}
	return tx.WithContext(ctx).Model(invoice).
		Updates(map[string]interface{}{
			"amount_paid": invoice.AmountPaid,
			"amount_due":  invoice.AmountDue,
		}).Error
}

// ApplyPayment records a payment against an invoice, posts it to the ledger
// (debit cash, credit accounts receivable) and advances the invoice's
// reconciliation status, all in one transaction.
func ApplyPayment(ctx context.Context, input *NewPayment) (*Payment, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	systemAccounts, err := GetSystemAccounts(ctx, tenantId)
	if err != nil {
		return nil, err
	}
	method := input.PaymentMethod
	if method == "" {
		method = PaymentMethodCash
	}

	db := config.GetDB()
	tx := db.Begin()
	// the locked re-read keeps a concurrent payment from deriving the status
	// off a stale paid total
	invoice, err := lockInvoiceTx(tx, ctx, tenantId, input.InvoiceId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if !payableStatuses[invoice.CurrentStatus] {
		tx.Rollback()
		return nil, fmt.Errorf("cannot apply payment to invoice in %s status", invoice.CurrentStatus)
	}
	seqNo, err := utils.GetSequenceTx[Payment](tx, ctx, tenantId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	payment := Payment{
		TenantId:      tenantId,
		InvoiceId:     invoice.ID,
		SequenceNo:    decimal.NewFromInt(seqNo),
		PaymentNumber: fmt.Sprintf("PMT-%06d", seqNo),
		PaymentDate:   input.PaymentDate,
		Amount:        input.Amount,
		PaymentMethod: method,
		Reference:     input.Reference,
		Notes:         input.Notes,
	}
	lines, err := paymentPostingLines(&payment, invoice, systemAccounts)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	entry := &NewJournalEntry{
		EntryDate:  payment.PaymentDate,
		Reference:  payment.PaymentNumber,
		SourceType: SourceDocumentTypePayment,
		SourceId:   payment.ID,
		Lines:      lines,
	}
	if _, err := createJournalEntryTx(tx, ctx, tenantId, entry); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := applyPaidDelta(tx, ctx, invoice, payment.Amount); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdatePayment corrects a payment's amount by reversing the original posting
// and booking a fresh one, then re-deriving the invoice status from the new
// paid total.
func UpdatePayment(ctx context.Context, id int, input *NewPayment) (*Payment, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	payment, err := utils.FetchModel[Payment](ctx, tenantId, id)
	if err != nil {
		return nil, err
	}
	if input.InvoiceId != payment.InvoiceId {
		return nil, errors.New("payment cannot move between invoices")
	}
	systemAccounts, err := GetSystemAccounts(ctx, tenantId)
	if err != nil {
		return nil, err
	}

	oldAmount := payment.Amount
	payment.PaymentDate = input.PaymentDate
	payment.Amount = input.Amount
	if input.PaymentMethod != "" {
		payment.PaymentMethod = input.PaymentMethod
	}
	payment.Reference = input.Reference
	payment.Notes = input.Notes

	db := config.GetDB()
	tx := db.Begin()
	invoice, err := lockInvoiceTx(tx, ctx, tenantId, payment.InvoiceId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	lines, err := paymentPostingLines(payment, invoice, systemAccounts)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	accountIds, err := softDeleteJournalEntriesForSource(tx, ctx, tenantId, SourceDocumentTypePayment, payment.ID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := refreshAccountBalances(tx, ctx, tenantId, accountIds); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Save(payment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	entry := &NewJournalEntry{
		EntryDate:  payment.PaymentDate,
		Reference:  payment.PaymentNumber,
		SourceType: SourceDocumentTypePayment,
		SourceId:   payment.ID,
		Lines:      lines,
	}
	if _, err := createJournalEntryTx(tx, ctx, tenantId, entry); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := applyPaidDelta(tx, ctx, invoice, payment.Amount.Sub(oldAmount)); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return payment, nil
}

// DeletePayment removes a payment, reverses its ledger posting and rolls the
// invoice status back to whatever the remaining paid total implies.
func DeletePayment(ctx context.Context, id int) (*Payment, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	payment, err := utils.FetchModel[Payment](ctx, tenantId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	invoice, err := lockInvoiceTx(tx, ctx, tenantId, payment.InvoiceId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	accountIds, err := softDeleteJournalEntriesForSource(tx, ctx, tenantId, SourceDocumentTypePayment, payment.ID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := refreshAccountBalances(tx, ctx, tenantId, accountIds); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(payment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := applyPaidDelta(tx, ctx, invoice, payment.Amount.Neg()); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func GetPayment(ctx context.Context, id int) (*Payment, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	return utils.FetchModel[Payment](ctx, tenantId, id)
}

func GetPaymentsForInvoice(ctx context.Context, invoiceId int) ([]*Payment, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	db := config.GetDB()
	var results []*Payment
	if err := db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantId, invoiceId).
		Order("payment_date ASC, id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
