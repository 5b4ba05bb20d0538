package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roshni-games/rulecore/internal/core/db"
	"github.com/roshni-games/rulecore/internal/core/logging"
	"github.com/roshni-games/rulecore/internal/rules"
	"github.com/roshni-games/rulecore/internal/store"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage stored rule definitions",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored rules in evaluation order",
	RunE:  runRulesList,
}

var rulesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the default personalization rules",
	RunE:  runRulesSeed,
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Structurally validate all stored rules",
	RunE:  runRulesValidate,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesSeedCmd)
	rulesCmd.AddCommand(rulesValidateCmd)
}

func openStore(cmd *cobra.Command) (*store.Store, func(), error) {
	if dbURL == "" {
		return nil, nil, fmt.Errorf("--db-url required")
	}
	log, err := logging.New(logLevel, logFormat)
	if err != nil {
		return nil, nil, err
	}
	database, err := db.Open(dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return store.New(queries, log), func() { database.Close() }, nil
}

func runRulesList(cmd *cobra.Command, args []string) error {
	ruleStore, closeDB, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	stored, err := ruleStore.LoadRules(cmd.Context())
	if err != nil {
		return err
	}
	for _, rule := range stored {
		state := "enabled"
		if !rule.Enabled {
			state = "disabled"
		}
		fmt.Printf("%-28s prio=%-3d conf=%.2f %-8s %s\n",
			rule.ID, rule.Priority, rule.Confidence, state, rule.Category)
	}
	fmt.Printf("%d rule(s)\n", len(stored))
	return nil
}

func runRulesSeed(cmd *cobra.Command, args []string) error {
	ruleStore, closeDB, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	n, err := ruleStore.SeedDefaults(cmd.Context())
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	fmt.Printf("seeded %d default rule(s)\n", n)
	return nil
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
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
	report := engine.ValidateAll()
	if report.Valid {
		fmt.Printf("%d rule(s) valid\n", engine.RuleCount())
		return nil
	}
	for _, msg := range report.Errors {
		fmt.Println(msg)
	}
	return fmt.Errorf("%d validation error(s)", len(report.Errors))
}
