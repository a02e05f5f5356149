package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/creamcroissant/inboundpanel/internal/bootstrap"
	"github.com/creamcroissant/inboundpanel/internal/config"
	"github.com/creamcroissant/inboundpanel/internal/migrations"
	"github.com/creamcroissant/inboundpanel/internal/preset"
	"github.com/creamcroissant/inboundpanel/internal/repository/sqlite"
	"github.com/creamcroissant/inboundpanel/internal/security"
	"github.com/creamcroissant/inboundpanel/internal/service"
	"github.com/creamcroissant/inboundpanel/internal/support/logging"
)

// app 是 serve 和各个子命令共用的依赖集合。
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *sql.DB
	store     *sqlite.Store
	catalog   *preset.Catalog
	inbounds  service.InboundService
	packs     service.PackService
	directory service.DirectoryService
}

type appOptions struct {
	Output   io.Writer
	Registry prometheus.Registerer
	Audit    security.Recorder
}

func newLogger(cfg *config.Config, out io.Writer) *slog.Logger {
	return logging.New(logging.Options{
		Level:     cfg.Log.SlogLevel(),
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
		Output:    out,
	})
}

// openApp 打开数据库、执行迁移、加载预设包并组装服务。
func openApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	out := opts.Output
	if out == nil {
		// 子命令的 stdout 留给结果输出。
		out = os.Stderr
	}
	logger := newLogger(cfg, out)

	db, err := bootstrap.OpenSQLite(cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	if err := migrations.UpContext(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	catalog, err := preset.Load(cfg.Presets.Dir, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load presets: %w", err)
	}

	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	audit := opts.Audit
	if audit == nil {
		audit = security.NewLoggerRecorder(logger)
	}

	store := sqlite.NewStore(db)
	svcOpts := service.InboundServiceOptions{
		AppName: cfg.Export.AppName,
		Version: cfg.Export.Version,
		Logger:  logger,
		Metrics: service.NewMetrics(cfg.Metrics.Namespace, registry),
		Audit:   audit,
	}
	return &app{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		store:     store,
		catalog:   catalog,
		inbounds:  service.NewInboundService(store.Inbounds(), svcOpts),
		packs:     service.NewPackService(store, catalog, svcOpts),
		directory: service.NewDirectoryService(store),
	}, nil
}

func (a *app) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}
