// Command dedupe merges a duplicate pair of games. The pair is named either
// by database IDs (keeper/loser) or by its external identifiers, in which case
// the steam-owned game is kept. --dry-run prints the report without touching
// the database.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ludocat/gamesync/internal/config"
	"github.com/ludocat/gamesync/internal/database"
	"github.com/ludocat/gamesync/internal/database/postgres"
	"github.com/ludocat/gamesync/internal/logger"
	"github.com/ludocat/gamesync/internal/merge"
)

func main() {
	var (
		keeperID int64
		loserID  int64
		steamID  int64
		rawgID   int64
		dryRun   bool
	)

	rootCmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Merge a duplicate pair of games into one",
		RunE: func(cmd *cobra.Command, args []string) error {
			byIDs := keeperID != 0 && loserID != 0
			byExternal := steamID != 0 && rawgID != 0
			if byIDs == byExternal {
				return fmt.Errorf("name the pair with --keeper/--loser or with --steam-id/--rawg-id")
			}
			if dryRun && byExternal {
				return fmt.Errorf("--dry-run requires --keeper/--loser")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger.Init(logger.DefaultConfig())

			dbPool, err := database.NewPool(cfg.GetDBConnString(), 4, 5*time.Minute, 30*time.Minute)
			if err != nil {
				return err
			}
			defer dbPool.Close()

			svc := merge.NewService(postgres.NewGameRepository(dbPool))

			var report *merge.Report
			switch {
			case byExternal:
				report, err = svc.MergeByExternalIDs(cmd.Context(), steamID, rawgID)
			case dryRun:
				report, err = svc.DryRun(cmd.Context(), keeperID, loserID)
			default:
				report, err = svc.Merge(cmd.Context(), keeperID, loserID)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	rootCmd.Flags().Int64Var(&keeperID, "keeper", 0, "database id of the game to keep")
	rootCmd.Flags().Int64Var(&loserID, "loser", 0, "database id of the game to fold into the keeper")
	rootCmd.Flags().Int64Var(&steamID, "steam-id", 0, "steam app id of the keeper")
	rootCmd.Flags().Int64Var(&rawgID, "rawg-id", 0, "rawg id of the loser")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what the merge would do without mutating")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Dedupe failed", "error", err)
		os.Exit(1)
	}
}
