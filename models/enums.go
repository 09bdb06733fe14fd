package models

import (
	"errors"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeAsset     AccountType = "Asset"
	AccountTypeLiability AccountType = "Liability"
	AccountTypeEquity    AccountType = "Equity"
	AccountTypeRevenue   AccountType = "Revenue"
	AccountTypeExpense   AccountType = "Expense"
)

func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

type NormalBalance string

const (
	NormalBalanceDebit  NormalBalance = "DEBIT"
	NormalBalanceCredit NormalBalance = "CREDIT"
)

// NormalBalance gives the side that increases the account. Every balance and
// every report figure in this codebase derives from this rule: debit-normal
// accounts report debit-credit, credit-normal accounts report credit-debit.
func (t AccountType) NormalBalance() NormalBalance {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return NormalBalanceDebit
	default:
		return NormalBalanceCredit
	}
}

// BalanceFromSums applies the type-aware sign convention to raw line sums.
func (t AccountType) BalanceFromSums(debit, credit decimal.Decimal) decimal.Decimal {
	if t.NormalBalance() == NormalBalanceDebit {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

type CashflowActivity string

const (
	CashflowActivityOperating CashflowActivity = "OPERATING"
	CashflowActivityInvesting CashflowActivity = "INVESTING"
	CashflowActivityFinancing CashflowActivity = "FINANCING"
)

// AccountRole tags a system account for automated postings. Roles replace
// ad-hoc discovery by name matching: the tax summary, invoice posting and
// payment posting all resolve accounts through this tag.
type AccountRole string

const (
	AccountRoleNone               AccountRole = ""
	AccountRoleAccountsReceivable AccountRole = "AR"
	AccountRoleAccountsPayable    AccountRole = "AP"
	AccountRoleTaxPayable         AccountRole = "TAX"
	AccountRoleSalesRevenue       AccountRole = "REV"
	AccountRoleCash               AccountRole = "CASH"
)

type SourceDocumentType string

const (
	SourceDocumentTypeInvoice SourceDocumentType = "Invoice"
	SourceDocumentTypePayment SourceDocumentType = "Payment"
	SourceDocumentTypeManual  SourceDocumentType = "Manual"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusSent          InvoiceStatus = "sent"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusOverdue       InvoiceStatus = "overdue"
	InvoiceStatusCanceled      InvoiceStatus = "canceled"
	InvoiceStatusVoid          InvoiceStatus = "void"
)

// legal transitions of the invoice state machine
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:         {InvoiceStatusSent, InvoiceStatusCanceled},
	InvoiceStatusSent:          {InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCanceled, InvoiceStatusVoid},
	InvoiceStatusPartiallyPaid: {InvoiceStatusPaid, InvoiceStatusSent, InvoiceStatusOverdue, InvoiceStatusVoid},
	InvoiceStatusPaid:          {InvoiceStatusPartiallyPaid, InvoiceStatusSent, InvoiceStatusVoid},
	InvoiceStatusOverdue:       {InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusVoid},
}

func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	for _, allowed := range invoiceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

var ErrInvalidStatusTransition = errors.New("invalid invoice status transition")

// GroupName is the closed enumeration for hierarchy levels. "custom" carries
// a free-form CustomName for tenant-defined categories.
type GroupName string

const (
	GroupNameAssets      GroupName = "assets"
	GroupNameLiabilities GroupName = "liabilities"
	GroupNameEquity      GroupName = "equity"
	GroupNameIncomes     GroupName = "incomes"
	GroupNameExpenses    GroupName = "expenses"
	GroupNameCustom      GroupName = "custom"
)

// groupNameSynonyms maps the naming drift seen in upstream data (CSV imports
// pluralize inconsistently) onto canonical group names. Declared data rather
// than inline string branching so the matching stays testable.
var groupNameSynonyms = map[string]GroupName{
	"asset":       GroupNameAssets,
	"assets":      GroupNameAssets,
	"liability":   GroupNameLiabilities,
	"liabilities": GroupNameLiabilities,
	"equity":      GroupNameEquity,
	"income":      GroupNameIncomes,
	"incomes":     GroupNameIncomes,
	"revenue":     GroupNameIncomes,
	"expense":     GroupNameExpenses,
	"expenses":    GroupNameExpenses,
}

// CanonicalGroupName resolves a raw name to its canonical enumeration value.
func CanonicalGroupName(raw string) (GroupName, bool) {
	if g, ok := groupNameSynonyms[raw]; ok {
		return g, true
	}
	switch GroupName(raw) {
	case GroupNameAssets, GroupNameLiabilities, GroupNameEquity, GroupNameIncomes, GroupNameExpenses, GroupNameCustom:
		return GroupName(raw), true
	}
	return "", false
}

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodCheque       PaymentMethod = "cheque"
	PaymentMethodOther        PaymentMethod = "other"
)
