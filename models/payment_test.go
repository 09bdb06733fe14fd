package models_test

import (
	"testing"
	"time"

	"github.com/praccloud/ledger_backend/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paymentFor(invoiceId int, amount int64) *models.NewPayment {
	return &models.NewPayment{
		InvoiceId:   invoiceId,
		PaymentDate: time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.NewFromInt(amount),
	}
}

func TestApplyPaymentPartialThenFull(t *testing.T) {
	openTestDB(t)
	ctx, _ := newTenantContext(t)

	invoice, err := models.CreateInvoice(ctx, simpleInvoice(2, 100))
	require.NoError(t, err)
	_, err = models.MarkInvoiceSent(ctx, invoice.ID)
	require.NoError(t, err)

	payment, err := models.ApplyPayment(ctx, paymentFor(invoice.ID, 50))
	require.NoError(t, err)
	assert.Equal(t, "PMT-000001", payment.PaymentNumber)
	assert.Equal(t, models.PaymentMethodCash, payment.PaymentMethod)

	fetched, err := models.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPartiallyPaid, fetched.CurrentStatus)
	assert.Equal(t, "50.00", fetched.AmountPaid.StringFixed(2))
	assert.Equal(t, "150.00", fetched.AmountDue.StringFixed(2))

	_, err = models.ApplyPayment(ctx, paymentFor(invoice.ID, 50))
	require.NoError(t, err)
	fetched, err = models.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPartiallyPaid, fetched.CurrentStatus)

	_, err = models.ApplyPayment(ctx, paymentFor(invoice.ID, 100))
	require.NoError(t, err)
	fetched, err = models.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, fetched.CurrentStatus)
	assert.True(t, fetched.AmountDue.IsZero())
}

func TestApplyPaymentOverpaymentLandsOnPaid(t *testing.T) {
	openTestDB(t)
	ctx, _ := newTenantContext(t)

	invoice, err := models.CreateInvoice(ctx, simpleInvoice(1, 100))
	require.NoError(t, err)
	_, err = models.MarkInvoiceSent(ctx, invoice.ID)
	require.NoError(t, err)

	_, err = models.ApplyPayment(ctx, paymentFor(invoice.ID, 150))
	require.NoError(t, err)

	fetched, err := models.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, fetched.CurrentStatus)
	assert.Equal(t, "150.00", fetched.AmountPaid.StringFixed(2))
	assert.True(t, fetched.AmountDue.IsZero())
}

func TestApplyPaymentRefusedForDraft(t *testing.T) {
	openTestDB(t)
	ctx, _ := newTenantContext(t)

	invoice, err := models.CreateInvoice(ctx, simpleInvoice(1, 100))
	require.NoError(t, err)

	_, err = models.ApplyPayment(ctx, paymentFor(invoice.ID, 100))
	require.Error(t, err)

	_, err = models.ApplyPayment(ctx, paymentFor(invoice.ID, -10))
	require.Error(t, err)
}

func TestApplyPaymentMovesCashAndReceivable(t *testing.T) {
	openTestDB(t)
	ctx, tenantId := newTenantContext(t)

	invoice, err := models.CreateInvoice(ctx, simpleInvoice(1, 100))
	require.NoError(t, err)
	_, err = models.MarkInvoiceSent(ctx, invoice.ID)
	require.NoError(t, err)
	_, err = models.ApplyPayment(ctx, paymentFor(invoice.ID, 60))
	require.NoError(t, err)

	cash := accountByRole(t, ctx, tenantId, models.AccountRoleCash)
	receivable := accountByRole(t, ctx, tenantId, models.AccountRoleAccountsReceivable)

	cashBalance, err := models.AccountBalance(ctx, cash.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "60.00", cashBalance.StringFixed(2))
	arBalance, err := models.AccountBalance(ctx, receivable.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "40.00", arBalance.StringFixed(2))
}

func TestUpdatePaymentRederivesStatus(t *testing.T) {
	openTestDB(t)
	ctx, tenantId := newTenantContext(t)

	invoice, err := models.CreateInvoice(ctx, simpleInvoice(1, 100))
	require.NoError(t, err)
	_, err = models.MarkInvoiceSent(ctx, invoice.ID)
	require.NoError(t, err)
	payment, err := models.ApplyPayment(ctx, paymentFor(invoice.ID, 100))
	require.NoError(t, err)

	fetched, err := models.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	require.Equal(t, models.InvoiceStatusPaid, fetched.CurrentStatus)

	// correcting the amount downward reopens the invoice
	_, err = models.UpdatePayment(ctx, payment.ID, paymentFor(invoice.ID, 30))
	require.NoError(t, err)

	fetched, err = models.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPartiallyPaid, fetched.CurrentStatus)
	assert.Equal(t, "30.00", fetched.AmountPaid.StringFixed(2))
	assert.Equal(t, "70.00", fetched.AmountDue.StringFixed(2))

	cash := accountByRole(t, ctx, tenantId, models.AccountRoleCash)
	cashBalance, err := models.AccountBalance(ctx, cash.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "30.00", cashBalance.StringFixed(2))
}

func TestUpdatePaymentRepostsLedgerEntry(t *testing.T) {
	openTestDB(t)
	ctx, tenantId := newTenantContext(t)

	invoice, err := models.CreateInvoice(ctx, simpleInvoice(1, 100))
	require.NoError(t, err)
	_, err = models.MarkInvoiceSent(ctx, invoice.ID)
	require.NoError(t, err)
	payment, err := models.ApplyPayment(ctx, paymentFor(invoice.ID, 50))
	require.NoError(t, err)

	_, err = models.UpdatePayment(ctx, payment.ID, paymentFor(invoice.ID, 80))
	require.NoError(t, err)

	// the original posting is reversed and the correction booked under the
	// next entry number
	sourceType := models.SourceDocumentTypePayment
	entries, err := models.GetJournalEntries(ctx, nil, nil, &sourceType, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "JE-000003", entries[0].EntryNumber)
	assert.True(t, entries[0].TotalAmount.Equal(decimal.NewFromInt(80)))

	cash := accountByRole(t, ctx, tenantId, models.AccountRoleCash)
	cashBalance, err := models.AccountBalance(ctx, cash.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "80.00", cashBalance.StringFixed(2))
}

func TestUpdatePaymentCannotMoveInvoices(t *testing.T) {
	openTestDB(t)
	ctx, _ := newTenantContext(t)

	first, err := models.CreateInvoice(ctx, simpleInvoice(1, 100))
	require.NoError(t, err)
	_, err = models.MarkInvoiceSent(ctx, first.ID)
	require.NoError(t, err)
	second, err := models.CreateInvoice(ctx, simpleInvoice(1, 100))
	require.NoError(t, err)

	payment, err := models.ApplyPayment(ctx, paymentFor(first.ID, 50))
	require.NoError(t, err)

	_, err = models.UpdatePayment(ctx, payment.ID, paymentFor(second.ID, 50))
	require.Error(t, err)
}

func TestDeletePaymentRollsInvoiceBack(t *testing.T) {
	openTestDB(t)
	ctx, tenantId := newTenantContext(t)

	invoice, err := models.CreateInvoice(ctx, simpleInvoice(1, 100))
	require.NoError(t, err)
	_, err = models.MarkInvoiceSent(ctx, invoice.ID)
	require.NoError(t, err)
	payment, err := models.ApplyPayment(ctx, paymentFor(invoice.ID, 100))
	require.NoError(t, err)

	_, err = models.DeletePayment(ctx, payment.ID)
	require.NoError(t, err)

	fetched, err := models.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusSent, fetched.CurrentStatus)
	assert.True(t, fetched.AmountPaid.IsZero())
	assert.Equal(t, "100.00", fetched.AmountDue.StringFixed(2))

	cash := accountByRole(t, ctx, tenantId, models.AccountRoleCash)
	cashBalance, err := models.AccountBalance(ctx, cash.ID, nil, nil)
	require.NoError(t, err)
	assert.True(t, cashBalance.IsZero(), cashBalance.String())

	payments, err := models.GetPaymentsForInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestDeletePaymentKeepsOverdueStatus(t *testing.T) {
	openTestDB(t)
	ctx, _ := newTenantContext(t)

	pastDue := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	input := simpleInvoice(1, 100)
	input.DueDate = &pastDue
	invoice, err := models.CreateInvoice(ctx, input)
	require.NoError(t, err)
	_, err = models.MarkInvoiceSent(ctx, invoice.ID)
	require.NoError(t, err)
	_, err = models.MarkOverdueInvoices(ctx, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	payment, err := models.ApplyPayment(ctx, paymentFor(invoice.ID, 40))
	require.NoError(t, err)
	fetched, err := models.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	require.Equal(t, models.InvoiceStatusPartiallyPaid, fetched.CurrentStatus)

	// removing the only payment leaves the invoice overdue, not sent
	_, err = models.DeletePayment(ctx, payment.ID)
	require.NoError(t, err)
	fetched, err = models.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusOverdue, fetched.CurrentStatus)
}
