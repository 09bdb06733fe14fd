package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/praccloud/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// invoicePostingLines builds the balanced line set for a sent invoice:
//
//	Dr accounts receivable   total
//	    Cr revenue               total - tax
//	    Cr tax payable           tax
func invoicePostingLines(invoice *Invoice, systemAccounts map[AccountRole]int) ([]NewJournalEntryLine, error) {
	receivableId, ok := systemAccounts[AccountRoleAccountsReceivable]
	if !ok {
		return nil, errors.New("accounts receivable system account is not configured")
	}
	revenueId, ok := systemAccounts[AccountRoleSalesRevenue]
	if !ok {
		return nil, errors.New("sales revenue system account is not configured")
	}
	lines := []NewJournalEntryLine{
		{
			AccountId:   receivableId,
			Description: fmt.Sprintf("Invoice %s - %s", invoice.InvoiceNumber, invoice.CustomerName),
			DebitAmount: invoice.Total,
		},
		{
			AccountId:    revenueId,
			Description:  fmt.Sprintf("Invoice %s revenue", invoice.InvoiceNumber),
			CreditAmount: invoice.Total.Sub(invoice.TotalTax),
		},
	}
	if invoice.TotalTax.IsPositive() {
		taxId, ok := systemAccounts[AccountRoleTaxPayable]
		if !ok {
			return nil, errors.New("tax payable system account is not configured")
		}
		lines = append(lines, NewJournalEntryLine{
			AccountId:    taxId,
			Description:  fmt.Sprintf("Invoice %s tax collected", invoice.InvoiceNumber),
			CreditAmount: invoice.TotalTax,
		})
	}
	return lines, nil
}

// paymentPostingLines books cash received against the receivable:
//
//	Dr cash      amount
//	    Cr accounts receivable   amount
func paymentPostingLines(payment *Payment, invoice *Invoice, systemAccounts map[AccountRole]int) ([]NewJournalEntryLine, error) {
	cashId, ok := systemAccounts[AccountRoleCash]
	if !ok {
		return nil, errors.New("cash system account is not configured")
	}
	receivableId, ok := systemAccounts[AccountRoleAccountsReceivable]
	if !ok {
		return nil, errors.New("accounts receivable system account is not configured")
	}
	return []NewJournalEntryLine{
		{
			AccountId:   cashId,
			Description: fmt.Sprintf("Payment %s for invoice %s", payment.PaymentNumber, invoice.InvoiceNumber),
			DebitAmount: payment.Amount,
		},
		{
			AccountId:    receivableId,
			Description:  fmt.Sprintf("Payment %s applied to invoice %s", payment.PaymentNumber, invoice.InvoiceNumber),
			CreditAmount: payment.Amount,
		},
	}, nil
}

// createJournalEntryTx posts an entry inside a caller-owned transaction and
// refreshes the touched account balance caches. The caller commits. Every
// database read goes through tx: the caller may have written accounts or
// journal entries already, and those tables are write-locked on sqlite.
func createJournalEntryTx(tx *gorm.DB, ctx context.Context, tenantId string, input *NewJournalEntry) (*JournalEntry, error) {
	if err := input.validate(tx, ctx, tenantId); err != nil {
		return nil, err
	}
	lines, totalAmount, err := receiveJournalLines(input, 0)
	if err != nil {
		return nil, err
	}
	sourceType := input.SourceType
	if sourceType == "" {
		sourceType = SourceDocumentTypeManual
	}
	seqNo, err := utils.GetSequenceTx[JournalEntry](tx, ctx, tenantId)
	if err != nil {
		return nil, err
	}
	entry := JournalEntry{
		TenantId:    tenantId,
		SequenceNo:  decimal.NewFromInt(seqNo),
		EntryNumber: fmt.Sprintf("JE-%06d", seqNo),
		EntryDate:   input.EntryDate,
		Reference:   input.Reference,
		SourceType:  sourceType,
		SourceId:    input.SourceId,
		Notes:       input.Notes,
		TotalAmount: totalAmount,
		IsPosted:    utils.NewTrue(),
		IsDeleted:   utils.NewFalse(),
		Lines:       lines,
	}
	if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, err
	}
	accountIds := make([]int, 0, len(lines))
	for _, l := range lines {
		accountIds = append(accountIds, l.AccountId)
	}
	if err := refreshAccountBalances(tx, ctx, tenantId, accountIds); err != nil {
		return nil, err
	}
	return &entry, nil
}
