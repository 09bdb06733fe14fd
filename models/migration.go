package models

import (
	"log"

	"github.com/praccloud/ledger_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&MainGroup{}, &ElementGroup{}, &SubElementGroup{}, &DetailedGroup{},
		&Account{},
		&JournalEntry{}, &JournalEntryLine{},
		&Invoice{}, &InvoiceLineItem{},
		&Payment{},
	)
	if err != nil {
		log.Fatalf("table migration failed: %v", err)
	}
}
