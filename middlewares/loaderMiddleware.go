package middlewares

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"github.com/praccloud/ledger_backend/config"
	"github.com/praccloud/ledger_backend/models"
	"gorm.io/gorm"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders batch per-request lookups so resolving the account names of a
// ledger view costs one query, not one per line.
type Loaders struct {
	AccountLoader *dataloader.Loader[int, *models.Account]
	InvoiceLoader *dataloader.Loader[int, *models.Invoice]
}

func NewLoaders(conn *gorm.DB) *Loaders {
	accountReader := &accountReader{db: conn}
	invoiceReader := &invoiceReader{db: conn}

	return &Loaders{
		AccountLoader: dataloader.NewBatchedLoader(accountReader.getAccounts, dataloader.WithWait[int, *models.Account](time.Millisecond)),
		InvoiceLoader: dataloader.NewBatchedLoader(invoiceReader.getInvoices, dataloader.WithWait[int, *models.Invoice](time.Millisecond)),
	}
}

func LoaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		loader := NewLoaders(config.GetDB())
		ctx := context.WithValue(c.Request.Context(), loadersKey, loader)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func For(ctx context.Context) *Loaders {
	return ctx.Value(loadersKey).(*Loaders)
}

func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}

// generateLoaderResults reorders db rows to match the requested id order.
func generateLoaderResults[T any](results []T, ids []int, idOf func(T) int) []*dataloader.Result[*T] {
	resultMap := make(map[int]*T, len(results))
	for i := range results {
		resultMap[idOf(results[i])] = &results[i]
	}
	loaderResults := make([]*dataloader.Result[*T], 0, len(ids))
	for _, id := range ids {
		loaderResults = append(loaderResults, &dataloader.Result[*T]{Data: resultMap[id]})
	}
	return loaderResults
}
