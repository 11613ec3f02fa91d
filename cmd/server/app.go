package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"mareero-backend/internal/audit"
	"mareero-backend/internal/auth"
	"mareero-backend/internal/chart"
	"mareero-backend/internal/config"
	"mareero-backend/internal/dashboard"
	"mareero-backend/internal/database"
	"mareero-backend/internal/inventory"
	"mareero-backend/internal/logging"
	"mareero-backend/internal/report"
	"mareero-backend/internal/store"
	"mareero-backend/internal/workbook"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxBodyBytes = 16 << 20

// deps is everything the commands share.
type deps struct {
	cfg      *config.Config
	log      *zap.Logger
	inv      *inventory.Service
	audit    *audit.Service // nil unless the postgres backend is used
	builder  *report.Builder
	exporter *workbook.Exporter
	db       *gorm.DB
}

func openDeps(cfg *config.Config, log *zap.Logger) (*deps, error) {
	d := &deps{cfg: cfg, log: log}

	var gw store.Gateway
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		db, err := database.Open(cfg.DatabaseDSN, log)
		if err != nil {
			return nil, err
		}
		d.db = db
		gw = store.NewTable(db)
	case config.StoreBackendWorkbook:
		gw = store.NewWorkbookFile(cfg.WorkbookPath, cfg.Location)
	case config.StoreBackendMemory:
		gw = store.NewMemory()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if cfg.StoreCacheTTL > 0 {
		gw = store.NewCached(gw, cfg.StoreCacheTTL)
	}

	opts := []inventory.Option{inventory.WithLogger(log)}
	if d.db != nil && cfg.AuditEnabled() {
		d.audit = audit.NewService(d.db)
		opts = append(opts, inventory.WithAuditor(d.audit))
	}
	d.inv = inventory.NewService(gw, cfg.Catalog, cfg.Location, opts...)

	d.builder = &report.Builder{
		Title:    cfg.ReportTitle,
		Subtitle: cfg.ReportSubtitle,
		Catalog:  cfg.Catalog,
		Charts:   chart.NewRaster(),
		Location: cfg.Location,
		Compress: true,
		Log:      log,
	}
	d.exporter = &workbook.Exporter{
		SplitByBranch: cfg.SplitByBranch,
		Catalog:       cfg.Catalog,
		Log:           log,
	}

	log.Info("store ready",
		zap.String("backend", cfg.StoreBackend),
		zap.Duration("cache_ttl", cfg.StoreCacheTTL),
		zap.Bool("audit", d.audit != nil),
	)
	return d, nil
}

func (d *deps) Close() {
	if d.db == nil {
		return
	}
	if sqlDB, err := d.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func newApp(d *deps) *fiber.App {
	log := d.log
	app := fiber.New(fiber.Config{
		BodyLimit:             maxBodyBytes,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var e *fiber.Error
			if errors.As(err, &e) {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Error("unexpected error", zap.String("request_id", logging.RequestID(c)), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "unexpected server error",
			})
		},
	})

	app.Use(logging.Middleware(log))
	app.Use(fiberrecover.New())

	corsOrigins := strings.Split(d.cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(corsOrigins, ","),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		AllowMethods:  "GET,POST,PUT,OPTIONS",
		ExposeHeaders: "Content-Disposition, X-Report-ID, X-Request-ID",
	}))

	inv := d.inv
	api := app.Group("/api")

	// Staff
	api.Get("/catalog", inventory.CatalogHandler(inv))
	api.Post("/records", inventory.SubmitHandler(inv))
	api.Post("/auth/login", auth.LoginHandler(d.cfg, time.Now))

	// Manager
	manager := api.Group("/manager", auth.JWTMiddleware(d.cfg), auth.RequireManager())

	manager.Get("/records", inventory.ListHandler(inv))
	manager.Put("/records", inventory.EditHandler(inv))
	manager.Post("/records/delete", inventory.DeleteHandler(inv))
	manager.Post("/records/import", inventory.ImportHandler(inv))

	manager.Get("/dashboard", dashboard.MetricsHandler(inv, d.cfg.Catalog, inv.Now))
	manager.Get("/dashboard/activity", dashboard.ActivityHandler(inv, inv.Now))

	manager.Get("/reports/pdf", report.PDFHandler(inv, d.builder, inv.Now))
	manager.Get("/reports/xlsx", report.XLSXHandler(inv, d.exporter, d.cfg.Location, inv.Now))

	manager.Get("/audit-logs", audit.ListAuditLogsHandler(d.audit))
	manager.Post("/audit-logs/:id/undo", audit.UndoAuditLogHandler(d.audit, inv))

	return app
}
