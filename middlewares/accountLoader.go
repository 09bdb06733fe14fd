package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"

	"github.com/praccloud/ledger_backend/models"
)

type accountReader struct {
	db *gorm.DB
}

func (r *accountReader) getAccounts(ctx context.Context, ids []int) []*dataloader.Result[*models.Account] {
	var results []models.Account
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error; err != nil {
		return handleError[*models.Account](len(ids), err)
	}
	return generateLoaderResults(results, ids, func(a models.Account) int { return a.ID })
}

type invoiceReader struct {
	db *gorm.DB
}

func (r *invoiceReader) getInvoices(ctx context.Context, ids []int) []*dataloader.Result[*models.Invoice] {
	var results []models.Invoice
	if err := r.db.WithContext(ctx).Preload("LineItems").Where("id IN ?", ids).Find(&results).Error; err != nil {
		return handleError[*models.Invoice](len(ids), err)
	}
	return generateLoaderResults(results, ids, func(i models.Invoice) int { return i.ID })
}

// GetAccounts loads many accounts in a single batch.
func GetAccounts(ctx context.Context, ids []int) ([]*models.Account, []error) {
	loaders := For(ctx)
	return loaders.AccountLoader.LoadMany(ctx, ids)()
}

// GetInvoice loads one invoice, line items included, through the per-request
// batcher.
func GetInvoice(ctx context.Context, id int) (*models.Invoice, error) {
	loaders := For(ctx)
	return loaders.InvoiceLoader.Load(ctx, id)()
}
