package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/DeafMist/bills-enricher/internal/categories"
	"github.com/DeafMist/bills-enricher/internal/config"
	"github.com/DeafMist/bills-enricher/internal/elasticsearch"
	"github.com/DeafMist/bills-enricher/internal/enrich"
	"github.com/DeafMist/bills-enricher/internal/logger"
	"github.com/DeafMist/bills-enricher/internal/openstates"
	"github.com/DeafMist/bills-enricher/internal/sink"
	"github.com/DeafMist/bills-enricher/internal/sponsors"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enricher",
		Short: "Build bills.json from the bill list and Open States data",
		Long: `enricher reads the hand-maintained bill list, looks every bill and
sponsor up on Open States and writes one JSON file keyed by bill id.

Settings come from the environment (see internal/config); flags override them.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runID := uuid.NewString()
			log := logger.New("enricher").With(slog.String("run_id", runID))

			cfg, err := config.LoadEnricher()
			if err != nil {
				log.Error("load config", slog.Any("err", err))
				return err
			}
			if err := applyFlags(cmd, cfg); err != nil {
				log.Error("apply flags", slog.Any("err", err))
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if err := run(ctx, log, cfg, runID); err != nil {
				log.Error("enrichment failed", slog.Any("err", err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringP("input", "i", "", "Bill list JSON (overrides BILLS_INPUT)")
	cmd.Flags().StringP("output", "o", "", "Output JSON file (overrides BILLS_OUTPUT)")
	cmd.Flags().String("api-key", "", "Open States API key (overrides OPENSTATES_API_KEY)")
	cmd.Flags().Int("concurrency", 0, "Bills enriched in parallel (overrides ENRICH_CONCURRENCY)")
	cmd.Flags().String("categories", "", "YAML or JSON category map overrides (overrides CATEGORY_MAP_FILE)")
	return cmd
}

func applyFlags(cmd *cobra.Command, cfg *config.Enricher) error {
	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.InputPath, _ = flags.GetString("input")
	}
	if flags.Changed("output") {
		cfg.OutputPath, _ = flags.GetString("output")
	}
	if flags.Changed("api-key") {
		cfg.APIKey, _ = flags.GetString("api-key")
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("categories") {
		cfg.CategoryFile, _ = flags.GetString("categories")
	}
	return cfg.Validate()
}

func run(ctx context.Context, log *slog.Logger, cfg *config.Enricher, runID string) error {
	records, err := sink.LoadSourceBills(cfg.InputPath)
	if err != nil {
		return err
	}
	cats, err := categories.Load(cfg.CategoryFile)
	if err != nil {
		return err
	}
	if cfg.APIKey == "" {
		log.Warn("OPENSTATES_API_KEY is empty, requests will likely be rejected")
	}

	client := openstates.New(openstates.Config{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		State:       cfg.State,
		Session:     cfg.Session,
		Timeout:     cfg.RequestTimeout,
		MaxInFlight: cfg.MaxInFlight,
	})
	pipeline := enrich.New(client, sponsors.NewCache(client.FetchLegislator), cats, enrich.Options{
		Concurrency: cfg.Concurrency,
		Logger:      log,
	})

	fanout := &sink.Fanout{Primary: &sink.File{Path: cfg.OutputPath}, Log: log}
	if cfg.ElasticsearchEnabled() {
		es, err := connectElasticsearch(ctx, log, cfg)
		if err != nil {
			log.Warn("elasticsearch sink disabled", slog.Any("err", err))
		} else {
			fanout.Secondaries = append(fanout.Secondaries, es)
		}
	}
	if cfg.KafkaEnabled() {
		k := sink.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, runID)
		defer func() {
			if err := k.Close(); err != nil {
				log.Error("close kafka writer", slog.Any("err", err))
			}
		}()
		fanout.Secondaries = append(fanout.Secondaries, k)
	}

	log.Info("enrichment started",
		slog.Int("bills", len(records)),
		slog.String("input", cfg.InputPath),
		slog.String("output", cfg.OutputPath),
		slog.Int("concurrency", cfg.Concurrency),
	)

	runCtx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
	defer cancel()

	if _, err := pipeline.Run(runCtx, records, fanout.Persist); err != nil {
		return err
	}
	return nil
}

func connectElasticsearch(ctx context.Context, log *slog.Logger, cfg *config.Enricher) (*elasticsearch.Client, error) {
	es, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := es.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("elasticsearch at %s: %w", cfg.ElasticsearchAddr, err)
	}
	if err := es.Health(pingCtx); err != nil {
		return nil, fmt.Errorf("elasticsearch at %s: %w", cfg.ElasticsearchAddr, err)
	}
	return es, nil
}
