package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/uuid"
	"github.com/praccloud/ledger_backend/config"
	"github.com/praccloud/ledger_backend/models"
	"github.com/praccloud/ledger_backend/utils"
	"github.com/sirupsen/logrus"
)

// seed-coa provisions the default chart of accounts for a tenant. With no
// -tenant flag a fresh tenant id is generated and printed.
func main() {
	tenantFlag := flag.String("tenant", "", "tenant id to seed (default: generate a new one)")
	tokenFlag := flag.Bool("token", false, "also print an admin bearer token for the tenant")
	flag.Parse()

	logger := config.GetLogger()
	logger.SetLevel(logrus.InfoLevel)

	tenantId := *tenantFlag
	if tenantId == "" {
		tenantId = uuid.NewString()
	} else if _, err := uuid.Parse(tenantId); err != nil {
		logger.WithFields(logrus.Fields{"field": "seed-coa", "tenant_id": tenantId}).
			Error("tenant id must be a uuid: " + err.Error())
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx := utils.SetTenantIdInContext(context.Background(), tenantId)
	accounts, err := models.SeedTenantDefaults(ctx, tenantId)
	if err != nil {
		config.LogError(logger, "seed-coa", "main", tenantId, nil, err)
		os.Exit(1)
	}

	logger.WithFields(logrus.Fields{
		"field":     "seed-coa",
		"tenant_id": tenantId,
		"accounts":  len(accounts),
	}).Info("seeded default chart of accounts")
	for _, a := range accounts {
		logger.WithFields(logrus.Fields{
			"account_code": a.AccountCode,
			"name":         a.Name,
			"type":         a.AccountType,
			"system_role":  a.SystemRole,
		}).Info("account")
	}

	if *tokenFlag {
		token, err := utils.JwtGenerate(1, tenantId, "admin")
		if err != nil {
			config.LogError(logger, "seed-coa", "main", tenantId, nil, err)
			os.Exit(1)
		}
		logger.WithFields(logrus.Fields{"field": "seed-coa", "token": token}).Info("bearer token")
	}
}
