package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caselens/caselens/config"
	"github.com/caselens/caselens/internal/cache/rediscache"
	"github.com/caselens/caselens/internal/reports"
	"github.com/caselens/caselens/internal/services/correlation"
	"github.com/caselens/caselens/internal/storage/sqlitestore"
	"github.com/caselens/caselens/internal/tools"
)

type serverApp struct {
	srv     *server
	cfg     *config.Config
	closeDB func()
}

// loadConfigOrDefaults reads the file named by the configPath env var.
// Without one the server runs on built-in defaults, so the stdio transport
// works with zero setup.
func loadConfigOrDefaults() *config.Config {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		return &config.Config{
			Database: config.DatabaseConfig{Path: "caselens.db", SeedPath: "seed_data.json"},
		}
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("load config: %v", err))
	}
	return cfg
}

func mustBootstrapServer(log *slog.Logger) *serverApp {
	cfg := loadConfigOrDefaults()

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = "caselens.db"
	}
	st, err := sqlitestore.New(dbPath)
	if err != nil {
		panic(fmt.Sprintf("open store: %v", err))
	}
	if cfg.Database.SeedPath != "" {
		if err := st.SeedFromFile(context.Background(), cfg.Database.SeedPath); err != nil {
			st.Close()
			panic(fmt.Sprintf("seed store: %v", err))
		}
	}

	svc := correlation.New(st)
	registry := tools.NewRegistry()
	if err := tools.RegisterCatalog(registry, st, svc); err != nil {
		st.Close()
		panic(fmt.Sprintf("register catalog: %v", err))
	}

	var snaps *tools.Snapshots
	if cfg.Redis.Host != "" {
		ttl := time.Duration(cfg.CaseLens.SnapshotTTLSeconds) * time.Second
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		snaps = tools.NewSnapshots(rediscache.New(redisAddr), ttl, log)
		log.Info("snapshot cache enabled", "addr", redisAddr, "ttl", ttl)
	}

	return &serverApp{
		srv: &server{
			registry: registry,
			snaps:    snaps,
			reports:  reports.New(st, svc),
			log:      log,
		},
		cfg:     cfg,
		closeDB: func() { st.Close() },
	}
}

func (a *serverApp) Close() {
	if a.closeDB != nil {
		a.closeDB()
	}
}
