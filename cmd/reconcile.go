package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"character-sync/core/fieldmerge"
	"character-sync/core/logger"
	"character-sync/core/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags shared by the reconcile subcommands
	fieldModeFlags map[string]string
	detectFields   []string
	planOutput     string
	yesConfirm     bool
)

// reconcileFixture is the input of "reconcile plan".
type reconcileFixture struct {
	BaseState    map[string]any          `json:"base_state"`
	CurrentState map[string]any          `json:"current_state"`
	Changes      []reconcile.StateChange `json:"changes"`
}

// reconcileCmd is the parent command for offline reconcile operations.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Detect and reconcile character state changes offline",
	Long: `Run the change detector and reconciler against JSON documents on disk.
Nothing is written to the database.`,
}

// planReconcileCmd replays a batch of changes against a current state.
var planReconcileCmd = &cobra.Command{
	Use:   "plan <fixture.json>",
	Short: "Reconcile a change batch and print the plan",
	Long: `Reads {"base_state", "current_state", "changes"} and prints the reconciled
state together with the applied and stale changes.

Examples:
  # Plan with the built-in field modes
  reconcile plan batch.json

  # Treat gold as a counter and write the plan to a file
  reconcile plan batch.json --mode gold=incremental --output plan.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReconcilePlan(args[0], fieldModeFlags, planOutput, cmd.OutOrStdout())
	},
}

// detectReconcileCmd lists the field-level changes between two documents.
var detectReconcileCmd = &cobra.Command{
	Use:   "detect <old.json> <new.json>",
	Short: "Print the field-level changes between two character documents",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReconcileDetect(args[0], args[1], fieldModeFlags, detectFields, cmd.OutOrStdout())
	},
}

func init() {
	for _, c := range []*cobra.Command{planReconcileCmd, detectReconcileCmd} {
		c.Flags().StringToStringVar(&fieldModeFlags, "mode", nil, "Field sync mode override, e.g. gold=incremental (repeatable)")
		reconcileCmd.AddCommand(c)
	}
	planReconcileCmd.Flags().StringVarP(&planOutput, "output", "o", "", "Write the plan JSON to a file instead of stdout")
	detectReconcileCmd.Flags().StringSliceVar(&detectFields, "field", nil, "Restrict detection to these field paths")

	RootCmd.AddCommand(reconcileCmd)
}

func runReconcilePlan(fixturePath string, overrides map[string]string, output string, stdout io.Writer) error {
	l, err := logger.New(&logger.Config{Level: "info", Format: "console"})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	var fixture reconcileFixture
	if err := readJSONFile(fixturePath, &fixture); err != nil {
		return err
	}
	spec, err := specWithOverrides(overrides)
	if err != nil {
		return err
	}

	plan, err := reconcile.NewReconciler(spec, l).Reconcile(fixture.BaseState, fixture.CurrentState, fixture.Changes)
	if err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}
	printReconcileReport(l, plan)

	if output == "" {
		return writeJSON(stdout, plan)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	defer f.Close()
	return writeJSON(f, plan)
}

func runReconcileDetect(oldPath, newPath string, overrides map[string]string, fields []string, stdout io.Writer) error {
	var oldDoc, newDoc map[string]any
	if err := readJSONFile(oldPath, &oldDoc); err != nil {
		return err
	}
	if err := readJSONFile(newPath, &newDoc); err != nil {
		return err
	}
	spec, err := specWithOverrides(overrides)
	if err != nil {
		return err
	}
	changes, err := reconcile.NewChangeDetector(spec).Detect(oldDoc, newDoc, fields)
	if err != nil {
		return err
	}
	return writeJSON(stdout, changes)
}

// specWithOverrides layers --mode flags over the built-in field modes.
func specWithOverrides(overrides map[string]string) (*reconcile.Spec, error) {
	modes := make(map[string]fieldmerge.Mode, len(defaultFieldModes)+len(overrides))
	for path, m := range defaultFieldModes {
		modes[path] = m
	}
	for path, raw := range overrides {
		if _, err := fieldmerge.ParsePath(path); err != nil {
			return nil, err
		}
		m, err := fieldmerge.ParseMode(raw)
		if err != nil {
			return nil, err
		}
		modes[path] = m
	}
	return &reconcile.Spec{FieldModes: modes}, nil
}

func printReconcileReport(l *zap.Logger, plan *reconcile.Plan) {
	l.Info("Reconcile plan",
		zap.Int("total_changes", plan.Summary.TotalChanges),
		zap.Int("applied", plan.Summary.Applied),
		zap.Int("skipped", plan.Summary.Skipped),
		zap.Int("fields", plan.Summary.Fields),
		zap.Strings("diverged_fields", plan.Summary.DivergedFields),
	)
	for _, s := range plan.Skipped {
		l.Warn("Change skipped",
			zap.String("field", s.Change.FieldPath),
			zap.String("reason", string(s.Reason)),
			zap.Any("expected", s.Change.OldValue),
			zap.Any("actual", s.Actual),
		)
	}
}

// confirmDestructiveAction asks for confirmation unless --yes was given.
func confirmDestructiveAction() bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\n⚠️  Type 'yes' to confirm: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(response) == "yes"
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
