package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/harun/courier/internal/config"
	"github.com/harun/courier/pkg/agent"
	"github.com/spf13/cobra"
)

var checkTimeout time.Duration

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and ping the LLM provider",
	Long: `Validate the configuration, report every problem found, and send a
two-token completion to confirm the provider accepts the credentials.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 30*time.Second, "time allowed for the provider ping")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ok := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)
	bad := color.New(color.FgRed)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	for _, finding := range config.NewValidator().ValidateConfig(cfg) {
		warn.Fprintf(out, "warning: %v\n", finding)
	}
	if err := cfg.Validate(); err != nil {
		bad.Fprintf(out, "config: %v\n", err)
		return fmt.Errorf("invalid configuration: %w", err)
	}
	ok.Fprintln(out, "config: OK")

	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	fmt.Fprintf(out, "%s (%s): ", provider.Provider(), cfg.LLM.Model)
	elapsed, err := agent.Ping(ctx, provider, cfg.LLM.Model)
	if err != nil {
		bad.Fprintln(out, "FAILED")
		return err
	}
	ok.Fprintf(out, "OK (%s)\n", elapsed.Round(time.Millisecond))
	return nil
}
