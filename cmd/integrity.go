package cmd

import (
	"context"
	"fmt"

	"character-sync/core/config"
	"character-sync/core/database"
	"character-sync/core/logger"
	"character-sync/core/storage"
	"character-sync/feature/integrity"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fixFlag bool

// integrityCmd represents the integrity command
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Check the database schema and version archive",
	Long: `Checks that the characters table matches the model and, when the archive is
enabled, that its bucket exists. Ledger drift is only visible on a running
server (GET /integrity/ledger).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), true, true)
	},
}

// schemaCmd represents the integrity schema command
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Check the characters table schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), true, false)
	},
}

// archiveCmd represents the integrity archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Check and optionally create the version archive bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), false, true)
	},
}

func init() {
	RootCmd.AddCommand(integrityCmd)
	integrityCmd.AddCommand(schemaCmd, archiveCmd)

	archiveCmd.Flags().BoolVar(&fixFlag, "fix", false, "Create the bucket when missing")
}

func runIntegrityChecks(ctx context.Context, runSchema, runArchive bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logg.Sync()

	// Connect without migrating so the schema is reported as found
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("database connection required: %w", err)
	}

	var client storage.Client
	if cfg.Storage.Enabled {
		if client, err = storage.NewClient(cfg.Storage); err != nil {
			return fmt.Errorf("failed to create storage client: %w", err)
		}
	}

	svc := integrity.NewService(db, client, cfg.Storage, nil, nil, logg)
	healthy := true

	if runSchema {
		report, err := svc.CheckSchema()
		if err != nil {
			return fmt.Errorf("schema check failed: %w", err)
		}
		if report.Matched {
			logg.Info("Schema check passed", zap.String("table", report.Table))
		} else {
			healthy = false
			logg.Warn("Schema mismatch detected",
				zap.String("table", report.Table),
				zap.Strings("missing", report.MissingColumns),
				zap.Strings("mismatches", report.TypeMismatches))
		}
	}

	if runArchive {
		if client == nil {
			logg.Info("Version archive disabled, skipping archive check")
		} else if err := checkArchive(ctx, svc, logg); err != nil {
			healthy = false
			logg.Warn("Archive check failed", zap.Error(err))
		}
	}

	if !healthy {
		return fmt.Errorf("integrity checks reported problems")
	}
	return nil
}

func checkArchive(ctx context.Context, svc *integrity.Service, logg *zap.Logger) error {
	report, err := svc.CheckArchive(ctx)
	if err != nil {
		return err
	}
	if report.Exists {
		logg.Info("Archive check passed",
			zap.String("bucket", report.Bucket),
			zap.Int("archived_versions", report.ArchivedCount))
		return nil
	}
	if !fixFlag {
		return fmt.Errorf("bucket %s does not exist (use --fix to create it)", report.Bucket)
	}
	if err := svc.FixArchive(ctx); err != nil {
		return err
	}
	logg.Info("Created archive bucket", zap.String("bucket", report.Bucket))
	return nil
}
