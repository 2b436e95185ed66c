package cli

import (
	"fmt"

	"github.com/harun/profiler/internal/config"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the effective configuration",
	Long: `Show the configuration after defaults and PROFILER_ environment overrides
are applied, followed by any validation problems.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config file: %s\n", config.NewLoader(cfgFile).GetConfigPath())
	fmt.Fprintln(out, cfg.String())

	validator := config.NewValidator()
	for _, w := range validator.Warnings(cfg) {
		fmt.Fprintf(out, "Warning: %s\n", w)
	}

	errs := validator.ValidateConfig(cfg)
	for _, e := range errs {
		fmt.Fprintf(out, "Error: %v\n", e)
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration has %d error(s)", len(errs))
	}
	return nil
}
