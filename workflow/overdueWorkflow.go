package workflow

import (
	"context"
	"time"

	"github.com/bsm/redislock"
	"github.com/praccloud/ledger_backend/config"
	"github.com/praccloud/ledger_backend/models"
	"github.com/praccloud/ledger_backend/utils"
	"github.com/sirupsen/logrus"
)

const overdueLockKey = "lock:overdue-sweep"

// SweepOverdueInvoices flips sent invoices past their due date to overdue,
// across every tenant with candidates. Returns the number of flipped rows.
func SweepOverdueInvoices(ctx context.Context) (int64, error) {
	logger := config.GetLogger()
	db := config.GetDB()
	now := time.Now().UTC()

	// cross-tenant candidate scan; the tenant guard must stay out of the way
	scanCtx := utils.SetSkipTenantScopeInContext(ctx, true)
	var tenantIds []string
	if err := db.WithContext(scanCtx).Model(&models.Invoice{}).
		Where("current_status = ? AND due_date IS NOT NULL AND due_date < ?", models.InvoiceStatusSent, now).
		Distinct("tenant_id").Pluck("tenant_id", &tenantIds).Error; err != nil {
		return 0, err
	}

	var total int64
	for _, tenantId := range tenantIds {
		tenantCtx := utils.SetTenantIdInContext(ctx, tenantId)
		flipped, err := models.MarkOverdueInvoices(tenantCtx, now)
		if err != nil {
			config.LogError(logger, "workflow", "SweepOverdueInvoices", tenantId, nil, err)
			continue
		}
		if flipped > 0 {
			logger.WithFields(logrus.Fields{
				"field":     "SweepOverdueInvoices",
				"tenant_id": tenantId,
				"flipped":   flipped,
			}).Info("marked overdue invoices")
		}
		total += flipped
	}
	return total, nil
}

// StartOverdueWorker runs the sweep on a fixed interval until ctx is done.
// A redis lock keeps replicas from sweeping concurrently; with no redis the
// sweep runs anyway and the per-row UPDATE stays idempotent.
func StartOverdueWorker(ctx context.Context, interval time.Duration) {
	logger := config.GetLogger()
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var lock *redislock.Lock
		if locker := config.GetRedisLock(); locker != nil {
			var err error
			lock, err = locker.Obtain(ctx, overdueLockKey, interval, nil)
			if err == redislock.ErrNotObtained {
				continue
			} else if err != nil {
				logger.WithFields(logrus.Fields{"field": "StartOverdueWorker"}).
					Warn("error obtaining redis lock; proceeding without redis lock: " + err.Error())
				lock = nil
			}
		}

		if _, err := SweepOverdueInvoices(ctx); err != nil {
			config.LogError(logger, "workflow", "StartOverdueWorker", "", nil, err)
		}

		if lock != nil {
			if releaseErr := lock.Release(ctx); releaseErr != nil && releaseErr != redislock.ErrLockNotHeld {
				logger.WithFields(logrus.Fields{"field": "StartOverdueWorker"}).
					Warn("error releasing redis lock: " + releaseErr.Error())
			}
		}
	}
}
