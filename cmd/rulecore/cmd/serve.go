package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/roshni-games/rulecore/internal/core/config"
	"github.com/roshni-games/rulecore/internal/core/db"
	"github.com/roshni-games/rulecore/internal/core/logging"
	"github.com/roshni-games/rulecore/internal/core/server"
	"github.com/roshni-games/rulecore/internal/rules"
	"github.com/roshni-games/rulecore/internal/store"
	"github.com/roshni-games/rulecore/internal/types"
)

const Version = "0.1.0"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the continuous evaluation loop with gRPC health checking",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC health server host")
	serveCmd.Flags().Int("port", 50061, "gRPC health server port")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("host") {
		host, _ := cmd.Flags().GetString("host")
		cfg.Host = host
	}
	if cmd.Flags().Changed("port") {
		port, _ := cmd.Flags().GetInt("port")
		cfg.Port = port
	}

	log, err := logging.New(logLevel, logFormat)
	if err != nil {
		return err
	}

	if dbURL == "" {
		return fmt.Errorf("--db-url required")
	}
	database, err := db.Open(dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	var migrationID string
	checkQuery := `SELECT migration_id FROM migrations WHERE migration_id = '002_contexts_outcomes.sql'`
	err = database.Get(&migrationID, database.Rebind(checkQuery))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("migration 002_contexts_outcomes not applied - run 'rulecore migrate' first")
		}
		return fmt.Errorf("failed to check migrations: %w", err)
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		return fmt.Errorf("failed to load queries: %w", err)
	}
	ruleStore := store.New(queries, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := rules.NewEngine(log)
	stored, err := ruleStore.LoadRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}
	for _, rule := range stored {
		if !engine.Register(rule) {
			log.WithField("rule_id", rule.ID).Warn("stored rule rejected at registration")
		}
	}
	log.WithField("rules", engine.RuleCount()).Info("rule registry loaded")

	provider := func() (types.RuleContext, error) {
		snapshot, err := ruleStore.LatestContext(ctx)
		if errors.Is(err, store.ErrNoContext) {
			// Nothing published yet; evaluate against an empty snapshot.
			return types.RuleContext{}, nil
		}
		return snapshot, err
	}

	sink := rules.EffectSinkFunc(func(rctx types.RuleContext, action types.RuleAction) error {
		log.WithFields(logrus.Fields{
			"action_type": action.Type,
			"user_id":     rctx.UserID,
		}).Debug("action emitted")
		return nil
	})

	results := engine.StartContinuousEvaluation(ctx, provider, cfg.EvaluationInterval)
	go func() {
		for batch := range results {
			snapshot, perr := provider()
			if perr != nil {
				log.WithError(perr).Warn("context unavailable for action execution")
			}
			for _, result := range batch {
				if err := ruleStore.RecordOutcome(ctx, result); err != nil {
					log.WithError(err).Warn("failed to record outcome")
				}
				if result.Allowed && perr == nil {
					engine.ExecuteActions(result, snapshot, sink)
				}
			}
		}
	}()

	grpcServer, err := server.NewGRPCServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	log.WithFields(logrus.Fields{
		"version": Version,
		"host":    cfg.Host,
		"port":    cfg.Port,
	}).Info("starting rulecore")

	errChan := make(chan error, 1)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		log.Info("shutting down gracefully")
		cancel()
		return grpcServer.Shutdown(context.Background())
	}
}
