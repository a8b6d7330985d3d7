package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/tabletki-watch/internal/config"
	"github.com/samvad-hq/tabletki-watch/internal/logger"
	"github.com/samvad-hq/tabletki-watch/internal/storage"
	"github.com/samvad-hq/tabletki-watch/internal/watcher"
	"github.com/samvad-hq/tabletki-watch/pkg/httpclient"
	"github.com/samvad-hq/tabletki-watch/pkg/publishers"
	"github.com/samvad-hq/tabletki-watch/pkg/queries"
	"github.com/samvad-hq/tabletki-watch/pkg/tabletki"
)

// Watcher is the polling runtime. It owns the API client, the state store
// and the publisher fanout, and drives the watcher service on a ticker.
type Watcher struct {
	cfg          *config.Config
	queryReg     *queries.Registry
	client       *tabletki.Client
	fanout       *publishers.Fanout
	service      *watcher.Service
	pollInterval time.Duration
	log          logger.Logger
	store        storage.Store
}

// NewWatcher builds a watcher runtime from config files.
func NewWatcher(ctx context.Context, cfg *config.Config, log logger.Logger) (*Watcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.AppAPIToken == "" {
		return nil, fmt.Errorf("app_api_token is required")
	}

	queryReg, err := queries.Load(cfg.QueriesFile)
	if err != nil {
		return nil, fmt.Errorf("load queries registry: %w", err)
	}
	enabledQueries := queryReg.Enabled()
	queryIDs := make([]string, 0, len(enabledQueries))
	for _, q := range enabledQueries {
		queryIDs = append(queryIDs, q.ID)
	}
	log.InfoObj("queries registry loaded", "queries_meta", map[string]any{
		"count": len(queryIDs),
		"ids":   queryIDs,
	})

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	store, err := storage.NewStore(ctx, cfg.StorageType, storageTarget(cfg), storage.Options{
		SnapshotTTL:     cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"target":                   storageTarget(cfg),
		"snapshot_ttl_seconds":     int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	identity, err := loadOrCreateIdentity(ctx, cfg, store, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	pubClients, err := publishers.DefaultRegistry().BuildAll(ctx, enabledPublishers, logger.Zap())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients, logger.Zap())
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	client := tabletki.NewClient(cfg.AppAPIToken, ClientOptions(cfg, identity)...)
	reg := watcher.DefaultRunnerRegistry(client, watcher.DefaultSummaryLimit)
	service := watcher.NewService(client, reg, fanout, store, log)

	return &Watcher{
		cfg:          cfg,
		queryReg:     queryReg,
		client:       client,
		fanout:       fanout,
		service:      service,
		pollInterval: cfg.PollInterval,
		log:          log,
		store:        store,
	}, nil
}

// ClientOptions maps config onto tabletki client options. identity may be
// the zero value, in which case the client generates one.
func ClientOptions(cfg *config.Config, identity tabletki.DeviceProfile) []tabletki.Option {
	opts := []tabletki.Option{
		tabletki.WithBaseURL(cfg.APIBaseURL),
		tabletki.WithLogger(logger.Zap()),
		tabletki.WithTransportOptions(httpclient.Options{
			Timeout:        cfg.HTTPTimeout,
			ConnectTimeout: cfg.HTTPConnectTimeout,
			ReadTimeout:    cfg.HTTPReadTimeout,
			Retries:        cfg.HTTPRetries,
			Backoff:        cfg.HTTPBackoff,
			MaxBackoff:     cfg.HTTPMaxBackoff,
		}),
		tabletki.WithRateLimit(cfg.HTTPRatePerSecond, 1),
	}
	if cfg.HTTPProxy != "" {
		opts = append(opts, tabletki.WithProxy(cfg.HTTPProxy))
	}
	if identity.DeviceID != "" {
		opts = append(opts, tabletki.WithIdentity(identity))
	}
	return opts
}

// DeviceFromConfig generates a fresh identity honouring configured overrides.
func DeviceFromConfig(cfg *config.Config) tabletki.DeviceProfile {
	var opts []tabletki.DeviceOption
	if cfg.DeviceLang != "" {
		opts = append(opts, tabletki.WithLang(cfg.DeviceLang))
	}
	if cfg.DeviceAppVersion != "" {
		opts = append(opts, tabletki.WithAppVersion(cfg.DeviceAppVersion))
	}
	if cfg.DeviceUserAgent != "" {
		opts = append(opts, tabletki.WithUserAgent(cfg.DeviceUserAgent))
	}
	if cfg.DeviceOS != "" {
		opts = append(opts, tabletki.WithDeviceOS(cfg.DeviceOS))
	}
	if cfg.DeviceOSVersion != "" {
		opts = append(opts, tabletki.WithOSVersion(cfg.DeviceOSVersion))
	}
	return tabletki.GenerateDevice(opts...)
}

func loadOrCreateIdentity(ctx context.Context, cfg *config.Config, store storage.Store, log logger.Logger) (tabletki.DeviceProfile, error) {
	profile, ok, err := store.LoadIdentity(ctx)
	if err != nil {
		return tabletki.DeviceProfile{}, fmt.Errorf("load identity: %w", err)
	}
	if ok {
		log.InfoObj("device identity restored", "identity", map[string]any{
			"device_id":   profile.DeviceID,
			"location_id": profile.LocationHeader,
		})
		return profile, nil
	}

	profile = DeviceFromConfig(cfg)
	if err := store.SaveIdentity(ctx, profile); err != nil {
		return tabletki.DeviceProfile{}, fmt.Errorf("save identity: %w", err)
	}
	log.InfoObj("device identity generated", "identity", map[string]any{
		"device_id": profile.DeviceID,
	})
	return profile, nil
}

func storageTarget(cfg *config.Config) string {
	if cfg.StorageType == storage.TypeRedis {
		return cfg.RedisURL
	}
	return cfg.BBoltPath
}

// Run resolves the location and starts the poll loop until the context is
// cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w == nil || w.service == nil {
		return fmt.Errorf("watcher is not initialized")
	}
	defer w.close()

	qs := w.queryReg.Enabled()
	if len(qs) == 0 {
		w.log.WarnObj("no queries enabled; watcher idle", "queries_file", w.cfg.QueriesFile)
		<-ctx.Done()
		return ctx.Err()
	}

	if _, err := w.service.Locate(ctx); err != nil {
		w.log.WarnObj("location lookup failed; using stored location", "error", err.Error())
	}

	w.log.InfoObj("watcher loop starting", "watcher_state", map[string]any{
		"queries_count":    len(qs),
		"publishers_count": w.fanout.Size(),
		"poll_interval":    w.pollInterval.String(),
	})

	if err := w.runOnce(ctx, qs); err != nil {
		w.log.ErrorObj("initial poll failed", "error", err.Error())
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.InfoObj("watcher loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := w.runOnce(ctx, qs); err != nil {
				w.log.ErrorObj("scheduled poll failed", "error", err.Error())
			}
		}
	}
}

// runOnce performs a single poll across all enabled queries.
func (w *Watcher) runOnce(ctx context.Context, qs []queries.Query) error {
	start := time.Now()
	w.log.InfoObj("poll started", "poll_meta", map[string]any{
		"queries_count": len(qs),
		"started_at":    start.UTC(),
	})
	if err := w.service.Run(ctx, qs); err != nil {
		return err
	}
	w.log.InfoObj("poll completed", "poll_meta", map[string]any{
		"queries_count": len(qs),
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})
	return nil
}

// close releases the client, publishers and store, logging any failures.
func (w *Watcher) close() {
	if w == nil {
		return
	}
	var errs []error
	if w.client != nil {
		errs = append(errs, w.client.Close())
	}
	if w.fanout != nil {
		errs = append(errs, w.fanout.Close())
	}
	if w.store != nil {
		errs = append(errs, w.store.Close())
	}
	if err := errors.Join(errs...); err != nil {
		w.log.ErrorObj("watcher shutdown failed", "error", err.Error())
	}
}
