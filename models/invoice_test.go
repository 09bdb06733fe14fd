package models_test

import (
	"testing"
	"time"

	"github.com/praccloud/ledger_backend/models"
	"github.com/praccloud/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleInvoice(quantity, unitPrice int64) *models.NewInvoice {
	return &models.NewInvoice{
		CustomerName: "Acme Trading",
		InvoiceDate:  time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		LineItems: []models.NewInvoiceLineItem{
			{Description: "Widgets", Quantity: decimal.NewFromInt(quantity), UnitPrice: decimal.NewFromInt(unitPrice)},
		},
	}
}

func TestCreateInvoiceComputesTotals(t *testing.T) {
	openTestDB(t)
	ctx, _ := newTenantContext(t)

	invoice, err := models.CreateInvoice(ctx, simpleInvoice(2, 100))
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusDraft, invoice.CurrentStatus)
	assert.Equal(t, "INV-000001", invoice.InvoiceNumber)
	assert.True(t, invoice.Subtotal.Equal(decimal.NewFromInt(200)), invoice.Subtotal.String())
	assert.True(t, invoice.Total.Equal(decimal.NewFromInt(200)))
	assert.True(t, invoice.AmountDue.Equal(decimal.NewFromInt(200)))
	assert.True(t, invoice.AmountPaid.IsZero())
}

func TestCreateInvoiceDiscountThenTax(t *testing.T) {
	openTestDB(t)
	ctx, _ := newTenantContext(t)

	invoice, err := models.CreateInvoice(ctx, &models.NewInvoice{
		CustomerName: "Acme Trading",
		InvoiceDate:  time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		LineItems: []models.NewInvoiceLineItem{
			{
				Description:  "Widgets",
				Quantity:     decimal.NewFromInt(3),
				UnitPrice:    decimal.RequireFromString("19.99"),
				DiscountRate: decimal.RequireFromString("0.1"),
				TaxRate:      decimal.RequireFromString("0.08"),
			},
		},
	})
	require.NoError(t, err)

	// base 59.97, discount 5.997, tax on the discounted base 4.3178
	require.Len(t, invoice.LineItems, 1)
	line := invoice.LineItems[0]
	assert.Equal(t, "5.9970", line.DiscountAmount.StringFixed(4))
	assert.Equal(t, "4.3178", line.TaxAmount.StringFixed(4))
	assert.Equal(t, "58.2908", line.TotalAmount.StringFixed(4))
	assert.Equal(t, "58.29", invoice.Total.StringFixed(2))
	assert.True(t, invoice.Total.Equal(invoice.Subtotal.Sub(invoice.TotalDiscount).Add(invoice.TotalTax)))
}

func TestCreateInvoiceRejectsBadRates(t *testing.T) {
	openTestDB(t)
	ctx, _ := newTenantContext(t)

	input := simpleInvoice(1, 100)
	input.LineItems[0].DiscountRate = decimal.RequireFromString("1.5")
	_, err := models.CreateInvoice(ctx, input)
	require.Error(t, err)

	input = simpleInvoice(1, 100)
	input.LineItems[0].TaxRate = decimal.RequireFromString("-0.1")
	_, err = models.CreateInvoice(ctx, input)
	require.Error(t, err)
}

func TestUpdateInvoiceRecomputesTotals(t *testing.T) {
	openTestDB(t)
	ctx, _ := newTenantContext(t)

	invoice, err := models.CreateInvoice(ctx, simpleInvoice(2, 100))
	require.NoError(t, err)

	updated, err := models.UpdateInvoice(ctx, invoice.ID, simpleInvoice(5, 40))
	require.NoError(t, err)
	assert.True(t, updated.Total.Equal(decimal.NewFromInt(200)))

	fetched, err := models.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	require.Len(t, fetched.LineItems, 1)
	assert.True(t, fetched.LineItems[0].Quantity.Equal(decimal.NewFromInt(5)))
}

func TestUpdateInvoiceRefusedAfterSend(t *testing.T) {
	openTestDB(t)
	ctx, _ := newTenantContext(t)

	invoice, err := models.CreateInvoice(ctx, simpleInvoice(2, 100))
	require.NoError(t, err)
	_, err = models.MarkInvoiceSent(ctx, invoice.ID)
	require.NoError(t, err)

	_, err = models.UpdateInvoice(ctx, invoice.ID, simpleInvoice(5, 40))
	require.Error(t, err)
}

func TestInvoiceStatusMachine(t *testing.T) {
	openTestDB(t)
	ctx, _ := newTenantContext(t)

	// draft cannot be voided or paid directly
	invoice, err := models.CreateInvoice(ctx, simpleInvoice(1, 100))
	require.NoError(t, err)
	_, err = models.VoidInvoice(ctx, invoice.ID)
	require.ErrorIs(t, err, models.ErrInvalidStatusTransition)

	// draft -> canceled is terminal
	_, err = models.CancelInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	_, err = models.MarkInvoiceSent(ctx, invoice.ID)
	require.ErrorIs(t, err, models.ErrInvalidStatusTransition)

	// sent -> void is allowed
	second, err := models.CreateInvoice(ctx, simpleInvoice(1, 100))
	require.NoError(t, err)
	_, err = models.MarkInvoiceSent(ctx, second.ID)
	require.NoError(t, err)
	voided, err := models.VoidInvoice(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusVoid, voided.CurrentStatus)
}

func TestMarkInvoiceSentPostsToLedger(t *testing.T) {
	openTestDB(t)
	ctx, tenantId := newTenantContext(t)

	invoice, err := models.CreateInvoice(ctx, &models.NewInvoice{
		CustomerName: "Acme Trading",
		InvoiceDate:  time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		LineItems: []models.NewInvoiceLineItem{
			{
				Description: "Widgets",
				Quantity:    decimal.NewFromInt(1),
				UnitPrice:   decimal.NewFromInt(100),
				TaxRate:     decimal.RequireFromString("0.05"),
			},
		},
	})
	require.NoError(t, err)
	_, err = models.MarkInvoiceSent(ctx, invoice.ID)
	require.NoError(t, err)

	receivable := accountByRole(t, ctx, tenantId, models.AccountRoleAccountsReceivable)
	revenue := accountByRole(t, ctx, tenantId, models.AccountRoleSalesRevenue)
	taxPayable := accountByRole(t, ctx, tenantId, models.AccountRoleTaxPayable)

	arBalance, err := models.AccountBalance(ctx, receivable.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "105.00", arBalance.StringFixed(2))
	revBalance, err := models.AccountBalance(ctx, revenue.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "100.00", revBalance.StringFixed(2))
	taxBalance, err := models.AccountBalance(ctx, taxPayable.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "5.00", taxBalance.StringFixed(2))

	sourceType := models.SourceDocumentTypeInvoice
	entries, err := models.GetJournalEntries(ctx, nil, nil, &sourceType, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, invoice.ID, entries[0].SourceId)
	assert.Len(t, entries[0].Lines, 3)
}

func TestVoidInvoiceReversesPostings(t *testing.T) {
	openTestDB(t)
	ctx, tenantId := newTenantContext(t)

	invoice, err := models.CreateInvoice(ctx, simpleInvoice(1, 100))
	require.NoError(t, err)
	_, err = models.MarkInvoiceSent(ctx, invoice.ID)
	require.NoError(t, err)
	_, err = models.VoidInvoice(ctx, invoice.ID)
	require.NoError(t, err)

	receivable := accountByRole(t, ctx, tenantId, models.AccountRoleAccountsReceivable)
	arBalance, err := models.AccountBalance(ctx, receivable.ID, nil, nil)
	require.NoError(t, err)
	assert.True(t, arBalance.IsZero(), arBalance.String())

	// the posting row is retained, soft-deleted
	sourceType := models.SourceDocumentTypeInvoice
	entries, err := models.GetJournalEntries(ctx, nil, nil, &sourceType, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeleteInvoiceRefusedAfterPosting(t *testing.T) {
	openTestDB(t)
	ctx, _ := newTenantContext(t)

	invoice, err := models.CreateInvoice(ctx, simpleInvoice(1, 100))
	require.NoError(t, err)
	_, err = models.MarkInvoiceSent(ctx, invoice.ID)
	require.NoError(t, err)

	_, err = models.DeleteInvoice(ctx, invoice.ID)
	require.Error(t, err)
	assert.True(t, utils.IsDependencyError(err))

	draft, err := models.CreateInvoice(ctx, simpleInvoice(1, 50))
	require.NoError(t, err)
	_, err = models.DeleteInvoice(ctx, draft.ID)
	require.NoError(t, err)
	_, err = models.GetInvoice(ctx, draft.ID)
	require.ErrorIs(t, err, utils.ErrorRecordNotFound)
}

func TestDeleteInvoiceRefusedAfterVoid(t *testing.T) {
	openTestDB(t)
	ctx, _ := newTenantContext(t)

	invoice, err := models.CreateInvoice(ctx, simpleInvoice(1, 100))
	require.NoError(t, err)
	_, err = models.MarkInvoiceSent(ctx, invoice.ID)
	require.NoError(t, err)
	_, err = models.VoidInvoice(ctx, invoice.ID)
	require.NoError(t, err)

	// the reversed postings still reference the invoice, so it must stay
	_, err = models.DeleteInvoice(ctx, invoice.ID)
	require.Error(t, err)
	assert.True(t, utils.IsDependencyError(err))

	fetched, err := models.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusVoid, fetched.CurrentStatus)
}

func TestMarkInvoiceSentTwicePostsOnce(t *testing.T) {
	openTestDB(t)
	ctx, _ := newTenantContext(t)

	invoice, err := models.CreateInvoice(ctx, simpleInvoice(1, 100))
	require.NoError(t, err)
	_, err = models.MarkInvoiceSent(ctx, invoice.ID)
	require.NoError(t, err)
	_, err = models.MarkInvoiceSent(ctx, invoice.ID)
	require.ErrorIs(t, err, models.ErrInvalidStatusTransition)

	sourceType := models.SourceDocumentTypeInvoice
	entries, err := models.GetJournalEntries(ctx, nil, nil, &sourceType, 0, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMarkOverdueInvoicesFlipsSentPastDue(t *testing.T) {
	openTestDB(t)
	ctx, _ := newTenantContext(t)

	pastDue := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	futureDue := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)

	overdue := simpleInvoice(1, 100)
	overdue.DueDate = &pastDue
	lateInvoice, err := models.CreateInvoice(ctx, overdue)
	require.NoError(t, err)
	_, err = models.MarkInvoiceSent(ctx, lateInvoice.ID)
	require.NoError(t, err)

	current := simpleInvoice(1, 100)
	current.DueDate = &futureDue
	currentInvoice, err := models.CreateInvoice(ctx, current)
	require.NoError(t, err)
	_, err = models.MarkInvoiceSent(ctx, currentInvoice.ID)
	require.NoError(t, err)

	// drafts never flip
	draft := simpleInvoice(1, 100)
	draft.DueDate = &pastDue
	_, err = models.CreateInvoice(ctx, draft)
	require.NoError(t, err)

	flipped, err := models.MarkOverdueInvoices(ctx, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.EqualValues(t, 1, flipped)

	fetched, err := models.GetInvoice(ctx, lateInvoice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusOverdue, fetched.CurrentStatus)
	fetched, err = models.GetInvoice(ctx, currentInvoice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusSent, fetched.CurrentStatus)
}

func TestGetInvoicesStatusFilter(t *testing.T) {
	openTestDB(t)
	ctx, _ := newTenantContext(t)

	first, err := models.CreateInvoice(ctx, simpleInvoice(1, 100))
	require.NoError(t, err)
	_, err = models.MarkInvoiceSent(ctx, first.ID)
	require.NoError(t, err)
	_, err = models.CreateInvoice(ctx, simpleInvoice(1, 50))
	require.NoError(t, err)

	status := models.InvoiceStatusDraft
	invoices, err := models.GetInvoices(ctx, &status, 0, 0)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, models.InvoiceStatusDraft, invoices[0].CurrentStatus)

	invoices, err = models.GetInvoices(ctx, nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, invoices, 2)
}
