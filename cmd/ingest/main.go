// Command ingest runs one batch of normalized catalog records against the
// database and prints the run summary. Records come from a JSON file produced
// by the source extractors, or from stdin with -file -.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ludocat/gamesync/internal/config"
	"github.com/ludocat/gamesync/internal/database"
	"github.com/ludocat/gamesync/internal/database/postgres"
	"github.com/ludocat/gamesync/internal/domain"
	"github.com/ludocat/gamesync/internal/game"
	"github.com/ludocat/gamesync/internal/ingest"
	"github.com/ludocat/gamesync/internal/logger"
	"github.com/ludocat/gamesync/internal/match"
)

func main() {
	var (
		source  string
		file    string
		workers int
	)

	rootCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run a batch of catalog records through the upsert pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger.Init(logger.DefaultConfig())

			records, err := readRecords(file)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("no records in %s", file)
			}

			dbPool, err := database.NewPool(cfg.GetDBConnString(), 10, 5*time.Minute, 30*time.Minute)
			if err != nil {
				return err
			}
			defer dbPool.Close()

			gameRepo := postgres.NewGameRepository(dbPool)
			runRepo := postgres.NewRunRepository(dbPool)
			matchRepo := postgres.NewMatchRepository(dbPool)

			engine := match.NewEngine(gameRepo, matchRepo, match.DefaultConfig())
			gameService := game.NewService(gameRepo, engine)

			ingestCfg := ingest.ConfigFromApp(cfg)
			if workers > 0 {
				ingestCfg.Workers = workers
			}

			orchestrator := ingest.NewOrchestrator(gameService, gameRepo, runRepo, ingestCfg)
			summary, err := orchestrator.Run(cmd.Context(), source, records)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}

	rootCmd.Flags().StringVar(&source, "source", "", "record source: steam or rawg")
	rootCmd.Flags().StringVar(&file, "file", "-", "path to a JSON array of records, or - for stdin")
	rootCmd.Flags().IntVar(&workers, "workers", 0, "override the configured worker count")
	_ = rootCmd.MarkFlagRequired("source")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Ingest failed", "error", err)
		os.Exit(1)
	}
}

func readRecords(path string) ([]*domain.ProcessedRecord, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var records []*domain.ProcessedRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}
