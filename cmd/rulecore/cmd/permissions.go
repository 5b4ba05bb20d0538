package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roshni-games/rulecore/internal/core/config"
	"github.com/roshni-games/rulecore/internal/core/logging"
	"github.com/roshni-games/rulecore/internal/permissions"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a hierarchical permission check",
	Long: `Check reports whether the held permissions grant the required one,
expanding the hierarchy (ADMIN > MODERATOR > USER > BASIC_ACCESS) and
applying any time, location, or context rules supplied via flags.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringSlice("held", nil, "held permission names")
	checkCmd.Flags().String("required", "", "required permission name")
	checkCmd.Flags().StringSlice("context", nil, "context pairs as key=value")
	checkCmd.Flags().String("location", "", "caller location")
	checkCmd.Flags().IntSlice("hours", nil, "time rule as start,end (optional)")
	checkCmd.Flags().StringSlice("blocked", nil, "blocked locations (optional location rule)")
	checkCmd.Flags().Bool("effective", false, "print the expanded permission set instead")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logging.New(logLevel, logFormat)
	if err != nil {
		return err
	}

	heldNames, _ := cmd.Flags().GetStringSlice("held")
	held := make([]permissions.Permission, len(heldNames))
	for i, name := range heldNames {
		held[i] = permissions.Permission(name)
	}

	manager := permissions.NewManager(log, permissions.WithCacheTTL(cfg.CacheTTL))

	if effective, _ := cmd.Flags().GetBool("effective"); effective {
		for _, p := range manager.EffectivePermissions(held) {
			fmt.Println(p)
		}
		return nil
	}

	requiredName, _ := cmd.Flags().GetString("required")
	if requiredName == "" {
		return fmt.Errorf("--required is mandatory")
	}
	required := permissions.Permission(requiredName)

	if hours, _ := cmd.Flags().GetIntSlice("hours"); len(hours) == 2 {
		manager.AddRule(permissions.NewTimeRule(required, hours[0], hours[1], nil, 0))
	}
	if blocked, _ := cmd.Flags().GetStringSlice("blocked"); len(blocked) > 0 {
		manager.AddRule(permissions.NewLocationRule(required, nil, blocked, 0))
	}

	pairs, _ := cmd.Flags().GetStringSlice("context")
	ctx := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("malformed context pair %q (expected key=value)", pair)
		}
		ctx[k] = v
	}

	location, _ := cmd.Flags().GetString("location")
	if manager.CheckWithRules(held, required, ctx, location) {
		fmt.Println("allowed")
		return nil
	}
	fmt.Println("denied")
	return nil
}
