package models_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/praccloud/ledger_backend/config"
	"github.com/praccloud/ledger_backend/models"
	"github.com/praccloud/ledger_backend/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB points the package globals at an isolated in-memory sqlite
// database and migrates the schema. Each test gets its own database.
func openTestDB(t *testing.T) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	prev := config.GetDB()
	config.SetDB(db)
	t.Cleanup(func() { config.SetDB(prev) })
	models.MigrateTable()
}

// newTenantContext seeds a fresh tenant with the default chart and returns a
// context carrying its id.
func newTenantContext(t *testing.T) (context.Context, string) {
	t.Helper()
	tenantId := uuid.NewString()
	ctx := utils.SetTenantIdInContext(context.Background(), tenantId)
	ctx = utils.SetUserIdInContext(ctx, 1)
	if _, err := models.SeedTenantDefaults(ctx, tenantId); err != nil {
		t.Fatalf("SeedTenantDefaults: %v", err)
	}
	return ctx, tenantId
}

// emptyTenantContext returns a tenant context without any seeded chart.
func emptyTenantContext(t *testing.T) (context.Context, string) {
	t.Helper()
	tenantId := uuid.NewString()
	ctx := utils.SetTenantIdInContext(context.Background(), tenantId)
	ctx = utils.SetUserIdInContext(ctx, 1)
	return ctx, tenantId
}

// accountByRole resolves a seeded system account.
func accountByRole(t *testing.T, ctx context.Context, tenantId string, role models.AccountRole) *models.Account {
	t.Helper()
	systemAccounts, err := models.GetSystemAccounts(ctx, tenantId)
	if err != nil {
		t.Fatalf("GetSystemAccounts: %v", err)
	}
	id, ok := systemAccounts[role]
	if !ok {
		t.Fatalf("system account %s not seeded", role)
	}
	account, err := models.GetAccount(ctx, id)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	return account
}
