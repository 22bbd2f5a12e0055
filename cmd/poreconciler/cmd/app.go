package cmd

import (
	"context"

	appconfig "po-reconciliation-service/cmd/poreconciler/config"
	"po-reconciliation-service/internal/comparer"
	"po-reconciliation-service/internal/erp"
	"po-reconciliation-service/internal/models"
	"po-reconciliation-service/internal/report"
	"po-reconciliation-service/internal/store"
	"po-reconciliation-service/internal/syncer"
	"po-reconciliation-service/pkg/logger"
)

// app holds the wired service graph shared by the database-backed commands
type app struct {
	config    *appconfig.AppConfig
	store     *store.Store
	erpClient *erp.Client
	service   *comparer.Service
	syncer    *syncer.Syncer
	generator *report.Generator
	logger    logger.Logger
}

// remoteSource routes remote line reads. Cache-only reads come from the
// database mirror so that report runs survive restarts and API outages; live
// reads go through the procurement client and its short-lived cache.
type remoteSource struct {
	client *erp.Client
	mirror *store.Store
}

func (r *remoteSource) OrderLines(ctx context.Context, externalOrderID string, opts models.FetchOptions) ([]models.RemoteLineRecord, error) {
	if opts.CacheOnly {
		return r.mirror.MirroredRemoteLines(ctx, externalOrderID)
	}
	return r.client.OrderLines(ctx, externalOrderID, opts)
}

// initLogging installs the configured logger as the global one. Called before
// any service is constructed so that every component logs consistently.
func initLogging(cfg *appconfig.AppConfig) error {
	log, err := logger.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	logger.SetGlobalLogger(log)
	return nil
}

// buildApp loads configuration and wires the full service graph. The caller
// must Close the returned app.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := appconfig.Load()
	if err != nil {
		return nil, err
	}
	if err := initLogging(cfg); err != nil {
		return nil, err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	if err := cfg.RequireERP(); err != nil {
		return nil, err
	}

	log := logger.GetGlobalLogger()

	st, err := store.New(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}

	client, err := erp.NewClient(cfg.ERP, log)
	if err != nil {
		st.Close()
		return nil, err
	}

	engine := comparer.NewEngine(cfg.Engine, log)
	service := comparer.NewService(engine, st, &remoteSource{client: client, mirror: st}, st, log)
	sync := syncer.New(cfg.Syncer, client, st, log)
	generator := report.NewGenerator(nil, service, st, sync, log)

	return &app{
		config:    cfg,
		store:     st,
		erpClient: client,
		service:   service,
		syncer:    sync,
		generator: generator,
		logger:    log,
	}, nil
}

func (a *app) Close() {
	a.store.Close()
}
