// caselens-agent runs one investigation end to end: it loads the store,
// wires the tool catalog and the reasoning client, feeds in a complaint and
// prints the final correlation report.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/caselens/caselens/config"
	"github.com/caselens/caselens/internal/cache/rediscache"
	"github.com/caselens/caselens/internal/integrations/reasoner/geminihttp"
	"github.com/caselens/caselens/internal/services/agent"
	"github.com/caselens/caselens/internal/services/correlation"
	"github.com/caselens/caselens/internal/storage/sqlitestore"
	"github.com/caselens/caselens/internal/tools"
)

const defaultComplaint = "Hi, I'm Rajesh Kumar (customer ID 5). I placed order #15 last week " +
	"and paid via UPI. The tracking number is TRK100015. The order status " +
	"shows shipped but it's been days and I haven't received anything. " +
	"I checked and it seems stuck somewhere. Also, I noticed a complaint " +
	"was already filed but nobody responded. This is really frustrating. " +
	"Can someone please look into this urgently?"

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	cfg := loadConfigOrDefaults()

	apiKeyEnv := cfg.Reasoner.APIKeyEnv
	if apiKeyEnv == "" {
		apiKeyEnv = "GEMINI_API_KEY"
	}
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		fmt.Fprintf(os.Stderr, "ERROR: set the %s environment variable first\n", apiKeyEnv)
		os.Exit(1)
	}

	complaint := defaultComplaint
	if len(os.Args) > 1 {
		complaint = os.Args[1]
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = "caselens.db"
	}
	st, err := sqlitestore.New(dbPath)
	if err != nil {
		panic(fmt.Sprintf("open store: %v", err))
	}
	defer st.Close()
	if cfg.Database.SeedPath != "" {
		if err := st.SeedFromFile(context.Background(), cfg.Database.SeedPath); err != nil {
			panic(fmt.Sprintf("seed store: %v", err))
		}
	}

	svc := correlation.New(st)
	registry := tools.NewRegistry()
	if err := tools.RegisterCatalog(registry, st, svc); err != nil {
		panic(fmt.Sprintf("register catalog: %v", err))
	}

	rc := geminihttp.New(cfg.Reasoner.BaseURL, cfg.Reasoner.Model, apiKey)

	agentCfg := agent.Config{
		MaxIterations:    cfg.CaseLens.MaxIterations,
		ResultCharBudget: cfg.CaseLens.ResultCharBudget,
		Logger:           log,
	}
	if cfg.Redis.Host != "" && cfg.Reasoner.RequestsPerMinute > 0 {
		redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		agentCfg.Limiter = rediscache.NewRateLimiter(redisAddr)
		agentCfg.RequestsPerMinute = cfg.Reasoner.RequestsPerMinute
		log.Info("reasoner rate limiting enabled", "rpm", cfg.Reasoner.RequestsPerMinute)
	}
	orch := agent.New(rc, registry, agentCfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	report, err := orch.Investigate(ctx, complaint)
	if err != nil {
		fmt.Fprintf(os.Stderr, "investigation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(report)
}

// loadConfigOrDefaults reads the file named by the configPath env var, or
// falls back to built-in defaults.
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
