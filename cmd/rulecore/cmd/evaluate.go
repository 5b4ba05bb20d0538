package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roshni-games/rulecore/internal/core/logging"
	"github.com/roshni-games/rulecore/internal/rules"
	"github.com/roshni-games/rulecore/internal/types"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate stored rules once against a context document",
	Long: `Evaluate reads a RuleContext JSON document from --context (or stdin),
loads the stored rule registry, and prints one result line per evaluated rule.`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().String("context", "", "path to RuleContext JSON document (default stdin)")
	evaluateCmd.Flags().String("category", "", "restrict evaluation to one category")
	evaluateCmd.Flags().String("rule", "", "evaluate a single rule by id")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	snapshot, err := readContext(cmd)
	if err != nil {
		return err
	}

	ruleStore, closeDB, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	log, err := logging.New(logLevel, logFormat)
	if err != nil {
		return err
	}
	stored, err := ruleStore.LoadRules(cmd.Context())
	if err != nil {
		return err
	}

	engine := rules.NewEngine(log)
	for _, rule := range stored {
		engine.Register(rule)
	}

	var results []types.RuleResult
	if ruleID, _ := cmd.Flags().GetString("rule"); ruleID != "" {
		results = []types.RuleResult{engine.EvaluateRule(ruleID, snapshot)}
	} else {
		category := types.CategoryUnspecified
		if name, _ := cmd.Flags().GetString("category"); name != "" {
			category = types.ParseRuleCategory(name)
			if category == types.CategoryUnspecified {
				return fmt.Errorf("unknown category %q", name)
			}
		}
		results = engine.EvaluateCategory(category, snapshot)
	}

	enc := json.NewEncoder(os.Stdout)
	for _, result := range results {
		if err := enc.Encode(result); err != nil {
			return err
		}
	}
	return nil
}

func readContext(cmd *cobra.Command) (types.RuleContext, error) {
	var reader io.Reader = os.Stdin
	if path, _ := cmd.Flags().GetString("context"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return types.RuleContext{}, fmt.Errorf("failed to open context document: %w", err)
		}
		defer f.Close()
		reader = f
	}

	var snapshot types.RuleContext
	if err := json.NewDecoder(reader).Decode(&snapshot); err != nil {
		return types.RuleContext{}, fmt.Errorf("failed to decode context document: %w", err)
	}
	return snapshot, nil
}
