package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roshni-games/rulecore/internal/core/config"
	"github.com/roshni-games/rulecore/internal/core/logging"
	"github.com/roshni-games/rulecore/internal/workflow"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Run the game-session workflow and print its transcript",
	Long: `Session drives the game-session lifecycle workflow to completion,
injecting the events given via --event at each blocking point, and prints
the visited states and produced notifications.`,
	RunE: runSession,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.Flags().String("user", "", "user id starting the session")
	sessionCmd.Flags().String("game", "", "game id")
	sessionCmd.Flags().StringSlice("event", nil, "events injected in order, one per blocking point")
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logging.New(logLevel, logFormat)
	if err != nil {
		return err
	}

	userID, _ := cmd.Flags().GetString("user")
	gameID, _ := cmd.Flags().GetString("game")
	events, _ := cmd.Flags().GetStringSlice("event")

	wf := workflow.NewGameSession(log)
	wf.Timeout = cfg.WorkflowTimeout

	run, err := wf.Start(workflow.NewContext(userID, gameID))
	if err != nil {
		return fmt.Errorf("session start failed: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := run.RunToCompletion(ctx); err != nil {
		return err
	}
	for _, event := range events {
		if run.Done() {
			break
		}
		run.Inject(event)
		if err := run.RunToCompletion(ctx); err != nil {
			return err
		}
	}

	for _, state := range run.Path() {
		fmt.Println(state)
	}
	for _, notice := range run.Notifications() {
		fmt.Printf("notification [%s] %s (at %s)\n", notice.Channel, notice.Message, notice.State)
	}
	if !run.Done() {
		fmt.Printf("blocked at %s awaiting events\n", run.Current())
	}
	return nil
}
