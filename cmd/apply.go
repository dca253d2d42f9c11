package cmd

import (
	"context"
	"fmt"

	"character-sync/core/config"
	"character-sync/core/fieldmerge"
	"character-sync/core/logger"
	"character-sync/core/versioning"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	applyBaseVersion int
	applyDryRun      bool
)

// applyCmd writes a change document to a character through the version manager.
var applyCmd = &cobra.Command{
	Use:   "apply <character-id> <changes.json>",
	Short: "Apply a change document to a stored character",
	Long: `Deep-merges the JSON object in <changes.json> into the character and records
a new version. With --base the write is checked against that version and
concurrent edits are merged or rejected.

Examples:
  # Preview which fields would change
  apply 3f2a... patch.json --dry-run

  # Apply against version 4 without prompting
  apply 3f2a... patch.json --base 4 --yes`,
	Args: cobra.ExactArgs(2),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().IntVar(&applyBaseVersion, "base", -1, "Version the changes were made against (default: latest)")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Show the changed fields without writing")
	applyCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm the write (non-interactive)")
	RootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid character id %q: %w", args[0], err)
	}
	var changes map[string]any
	if err := readJSONFile(args[1], &changes); err != nil {
		return err
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logg.Sync()

	rt, err := buildRuntime(ctx, cfg, logg)
	if err != nil {
		return err
	}

	latest, err := rt.manager.GetCharacterVersion(ctx, id, versioning.Latest)
	if err != nil {
		return err
	}
	paths := fieldmerge.DiffPatch(latest.StateData, changes)
	logg.Info("Pending changes",
		zap.String("character_id", id.String()),
		zap.Int("latest_version", latest.Version),
		zap.Strings("fields", paths),
	)
	if len(paths) == 0 {
		logg.Info("Nothing to apply")
		return nil
	}
	if applyDryRun {
		logg.Info("Dry-run mode: no changes written")
		return nil
	}
	if !confirmDestructiveAction() {
		logg.Info("Aborted")
		return nil
	}

	var base *int
	if applyBaseVersion >= 0 {
		base = &applyBaseVersion
	}
	v, hadConflict, err := rt.manager.ApplyChanges(ctx, id, changes, base)
	if err != nil {
		return err
	}
	logg.Info("Version recorded",
		zap.Int("version", v.Version),
		zap.Bool("had_conflict", hadConflict),
	)
	return nil
}
