package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/praccloud/ledger_backend/config"
	"github.com/praccloud/ledger_backend/middlewares"
	"github.com/praccloud/ledger_backend/models"
	"github.com/praccloud/ledger_backend/models/reports"
	"github.com/praccloud/ledger_backend/utils"
	"github.com/praccloud/ledger_backend/workflow"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
)

const defaultPort = "8080"

var tracer = otel.Tracer("ledger-backend")

// bindError answers a failed request binding, with per-field detail when the
// failure came from validation tags.
func bindError(c *gin.Context, err error) {
	if fields := utils.ProcessValidationErrors(err); fields != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": fields})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound) || errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case utils.IsDependencyError(err) || errors.Is(err, models.ErrInvalidStatusTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
	c.Error(err)
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// queryDate parses an optional yyyy-mm-dd query param.
func queryDate(c *gin.Context, name string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + ": expected yyyy-mm-dd"})
		return nil, false
	}
	return &t, true
}

func queryPaging(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

/* chart of accounts */

func createGroupHandler[T any](create func(context.Context, *models.NewChartGroup) (*T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewChartGroup
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		group, err := create(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, group)
	}
}

func deleteGroupHandler[T any](remove func(context.Context, int) (*T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		group, err := remove(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, group)
	}
}

func hierarchyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tree, err := models.GetHierarchy(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"hierarchy": tree})
	}
}

func resolveGroupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := strings.TrimSpace(c.Query("name"))
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}
		parentId, _ := strconv.Atoi(c.Query("parent_id"))
		ctx := c.Request.Context()
		var result interface{}
		var err error
		switch c.Param("level") {
		case "main-groups":
			result, err = models.FindMainGroupByName(ctx, name)
		case "element-groups":
			result, err = models.FindElementGroupByName(ctx, name, parentId)
		case "sub-element-groups":
			result, err = models.FindSubElementGroupByName(ctx, name, parentId)
		case "detailed-groups":
			result, err = models.FindDetailedGroupByName(ctx, name, parentId)
		default:
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown group level"})
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

/* accounts */

func createAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewAccount
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		account, err := models.CreateAccount(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, account)
	}
}

func updateAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewAccount
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		account, err := models.UpdateAccount(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func accountActiveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input struct {
			IsActive *bool `json:"is_active" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		account, err := models.MarkAccountActive(c.Request.Context(), id, *input.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func deleteAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		account, err := models.DeleteAccount(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func getAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		account, err := models.GetAccount(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func listAccountsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var name, code *string
		if v := c.Query("name"); v != "" {
			name = &v
		}
		if v := c.Query("code"); v != "" {
			code = &v
		}
		accounts, err := models.GetAccounts(c.Request.Context(), name, code)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"accounts": accounts})
	}
}

func accountBalanceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		from, ok := queryDate(c, "from")
		if !ok {
			return
		}
		to, ok := queryDate(c, "to")
		if !ok {
			return
		}
		balance, err := models.AccountBalance(c.Request.Context(), id, from, to)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"account_id": id, "balance": balance})
	}
}

/* journal */

func createJournalEntryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewJournalEntry
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		// manual entries only; document postings go through their documents
		input.SourceType = models.SourceDocumentTypeManual
		input.SourceId = 0
		entry, err := models.CreateJournalEntry(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, entry)
	}
}

func getJournalEntryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		entry, err := models.GetJournalEntry(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		// resolve line accounts through the per-request batcher
		accountIds := make([]int, 0, len(entry.Lines))
		for _, l := range entry.Lines {
			accountIds = append(accountIds, l.AccountId)
		}
		accounts, _ := middlewares.GetAccounts(ctx, utils.UniqueSlice(accountIds))
		accountById := make(map[int]*models.Account, len(accounts))
		for _, a := range accounts {
			if a != nil {
				accountById[a.ID] = a
			}
		}
		lines := make([]gin.H, 0, len(entry.Lines))
		for _, l := range entry.Lines {
			line := gin.H{
				"id":            l.ID,
				"account_id":    l.AccountId,
				"description":   l.Description,
				"debit_amount":  l.DebitAmount,
				"credit_amount": l.CreditAmount,
				"line_order":    l.LineOrder,
			}
			if a, ok := accountById[l.AccountId]; ok {
				line["account_code"] = a.AccountCode
				line["account_name"] = a.Name
			}
			lines = append(lines, line)
		}
		c.JSON(http.StatusOK, gin.H{"entry": entry, "lines": lines})
	}
}

func listJournalEntriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		from, ok := queryDate(c, "from")
		if !ok {
			return
		}
		to, ok := queryDate(c, "to")
		if !ok {
			return
		}
		var sourceType *models.SourceDocumentType
		if v := c.Query("source_type"); v != "" {
			st := models.SourceDocumentType(v)
			sourceType = &st
		}
		limit, offset := queryPaging(c)
		entries, err := models.GetJournalEntries(c.Request.Context(), from, to, sourceType, limit, offset)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"journal_entries": entries})
	}
}

func deleteJournalEntryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		entry, err := models.DeleteJournalEntry(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

/* invoices */

func createInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewInvoice
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		invoice, err := models.CreateInvoice(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, invoice)
	}
}

func updateInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewInvoice
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		invoice, err := models.UpdateInvoice(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func invoiceTransitionHandler(transition func(context.Context, int) (*models.Invoice, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		invoice, err := transition(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func getInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		invoice, err := models.GetInvoice(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func listInvoicesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var status *models.InvoiceStatus
		if v := c.Query("status"); v != "" {
			s := models.InvoiceStatus(v)
			status = &s
		}
		limit, offset := queryPaging(c)
		invoices, err := models.GetInvoices(c.Request.Context(), status, limit, offset)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"invoices": invoices})
	}
}

func deleteInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		invoice, err := models.DeleteInvoice(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func invoicePaymentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		invoice, err := middlewares.GetInvoice(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		if invoice == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
			return
		}
		payments, err := models.GetPaymentsForInvoice(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"invoice": invoice, "payments": payments})
	}
}

/* payments */

func applyPaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPayment
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		payment, err := models.ApplyPayment(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, payment)
	}
}

func getPaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		payment, err := models.GetPayment(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, payment)
	}
}

func updatePaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewPayment
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		payment, err := models.UpdatePayment(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, payment)
	}
}

func deletePaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		payment, err := models.DeletePayment(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, payment)
	}
}

/* reports */

func profitAndLossHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		from, ok := queryDate(c, "from")
		if !ok {
			return
		}
		to, ok := queryDate(c, "to")
		if !ok {
			return
		}
		ctx, span := tracer.Start(c.Request.Context(), "reports.profitAndLoss")
		defer span.End()
		report, err := reports.GetProfitAndLossReport(ctx, from, to)
		if err != nil {
			respondError(c, err)
			return
		}
		if c.Query("format") == "xlsx" {
			f, err := reports.ProfitAndLossExcel(report)
			if err != nil {
				respondError(c, err)
				return
			}
			c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			c.Header("Content-Disposition", "attachment; filename=profit-and-loss.xlsx")
			if err := f.Write(c.Writer); err != nil {
				c.Status(http.StatusInternalServerError)
			}
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func balanceSheetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		asOf, ok := queryDate(c, "as_of")
		if !ok {
			return
		}
		ctx, span := tracer.Start(c.Request.Context(), "reports.balanceSheet")
		defer span.End()
		report, err := reports.GetBalanceSheetReport(ctx, asOf)
		if err != nil {
			respondError(c, err)
			return
		}
		if c.Query("format") == "xlsx" {
			f, err := reports.BalanceSheetExcel(report)
			if err != nil {
				respondError(c, err)
				return
			}
			c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			c.Header("Content-Disposition", "attachment; filename=balance-sheet.xlsx")
			if err := f.Write(c.Writer); err != nil {
				c.Status(http.StatusInternalServerError)
			}
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func cashFlowHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		from, ok := queryDate(c, "from")
		if !ok {
			return
		}
		to, ok := queryDate(c, "to")
		if !ok {
			return
		}
		ctx, span := tracer.Start(c.Request.Context(), "reports.cashFlow")
		defer span.End()
		report, err := reports.GetCashFlowReport(ctx, from, to)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func taxSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		from, ok := queryDate(c, "from")
		if !ok {
			return
		}
		to, ok := queryDate(c, "to")
		if !ok {
			return
		}
		ctx, span := tracer.Start(c.Request.Context(), "reports.taxSummary")
		defer span.End()
		report, err := reports.GetTaxSummaryReport(ctx, from, to)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func expenseReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		from, ok := queryDate(c, "from")
		if !ok {
			return
		}
		to, ok := queryDate(c, "to")
		if !ok {
			return
		}
		var subElementGroupId *int
		if v := c.Query("sub_element_group_id"); v != "" {
			id, err := strconv.Atoi(v)
			if err != nil || id <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sub_element_group_id"})
				return
			}
			subElementGroupId = &id
		}
		ctx, span := tracer.Start(c.Request.Context(), "reports.expense")
		defer span.End()
		report, err := reports.GetExpenseReport(ctx, from, to, subElementGroupId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func seedTenantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantId, ok := utils.GetTenantIdFromContext(c.Request.Context())
		if !ok || tenantId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "tenant id is required"})
			return
		}
		// platform admins may provision a different tenant
		if v := strings.TrimSpace(c.Query("tenant_id")); v != "" && v != tenantId {
			if isAdmin, _ := utils.GetIsAdminFromContext(c.Request.Context()); !isAdmin {
				c.JSON(http.StatusForbidden, gin.H{"error": "only admins can seed another tenant"})
				return
			}
			tenantId = v
		}
		accounts, err := models.SeedTenantDefaults(c.Request.Context(), tenantId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"accounts": accounts})
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// customErrorLogger logs only requests that collected errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			fields := logrus.Fields{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}
			if correlationId, ok := utils.GetCorrelationIdFromContext(c.Request.Context()); ok {
				fields["correlation_id"] = correlationId
			}
			if userId, ok := utils.GetUserIdFromContext(c.Request.Context()); ok {
				fields["user_id"] = userId
			}
			logger.WithFields(fields).Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func registerRoutes(r *gin.Engine) {
	api := r.Group("/api", middlewares.RequireTenant())

	chart := api.Group("/chart")
	chart.GET("/hierarchy", hierarchyHandler())
	chart.GET("/resolve/:level", resolveGroupHandler())
	chart.POST("/main-groups", createGroupHandler(models.CreateMainGroup))
	chart.DELETE("/main-groups/:id", deleteGroupHandler(models.DeleteMainGroup))
	chart.POST("/element-groups", createGroupHandler(models.CreateElementGroup))
	chart.DELETE("/element-groups/:id", deleteGroupHandler(models.DeleteElementGroup))
	chart.POST("/sub-element-groups", createGroupHandler(models.CreateSubElementGroup))
	chart.DELETE("/sub-element-groups/:id", deleteGroupHandler(models.DeleteSubElementGroup))
	chart.POST("/detailed-groups", createGroupHandler(models.CreateDetailedGroup))
	chart.DELETE("/detailed-groups/:id", deleteGroupHandler(models.DeleteDetailedGroup))

	accounts := api.Group("/accounts")
	accounts.POST("", createAccountHandler())
	accounts.GET("", listAccountsHandler())
	accounts.GET("/:id", getAccountHandler())
	accounts.PUT("/:id", updateAccountHandler())
	accounts.PATCH("/:id/active", accountActiveHandler())
	accounts.DELETE("/:id", deleteAccountHandler())
	accounts.GET("/:id/balance", accountBalanceHandler())

	journal := api.Group("/journal-entries")
	journal.POST("", createJournalEntryHandler())
	journal.GET("", listJournalEntriesHandler())
	journal.GET("/:id", getJournalEntryHandler())
	journal.DELETE("/:id", deleteJournalEntryHandler())

	invoices := api.Group("/invoices")
	invoices.POST("", createInvoiceHandler())
	invoices.GET("", listInvoicesHandler())
	invoices.GET("/:id", getInvoiceHandler())
	invoices.PUT("/:id", updateInvoiceHandler())
	invoices.DELETE("/:id", deleteInvoiceHandler())
	invoices.POST("/:id/send", invoiceTransitionHandler(models.MarkInvoiceSent))
	invoices.POST("/:id/cancel", invoiceTransitionHandler(models.CancelInvoice))
	invoices.POST("/:id/void", invoiceTransitionHandler(models.VoidInvoice))
	invoices.GET("/:id/payments", invoicePaymentsHandler())

	payments := api.Group("/payments")
	payments.POST("", applyPaymentHandler())
	payments.GET("/:id", getPaymentHandler())
	payments.PUT("/:id", updatePaymentHandler())
	payments.DELETE("/:id", deletePaymentHandler())

	reportGroup := api.Group("/reports")
	reportGroup.GET("/profit-and-loss", profitAndLossHandler())
	reportGroup.GET("/balance-sheet", balanceSheetHandler())
	reportGroup.GET("/cash-flow", cashFlowHandler())
	reportGroup.GET("/tax-summary", taxSummaryHandler())
	reportGroup.GET("/expense", expenseReportHandler())

	api.POST("/tenant/seed", seedTenantHandler())
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server before dependencies are ready; app routes return
	// 503 until the database comes up.
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "X-Correlation-Id")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(middlewares.AuthMiddleware())
	r.Use(middlewares.LoaderMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())
	registerRoutes(r)
	r.NoRoute(customNotFoundHandler)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	sweepInterval := time.Hour
	if v := strings.TrimSpace(os.Getenv("OVERDUE_SWEEP_MINUTES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			sweepInterval = time.Duration(n) * time.Minute
		}
	}
	go workflow.StartOverdueWorker(workerCtx, sweepInterval)

	logger.WithFields(logrus.Fields{"field": "http"}).Info("listening on :" + port)

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
