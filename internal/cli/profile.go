package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/harun/profiler/internal/app"
	"github.com/harun/profiler/pkg/profile"
	"github.com/spf13/cobra"
)

var (
	profileTable       string
	profileColumns     string
	profileActive      string
	profileInstance    string
	profileURL         string
	profileConcurrency int
	profileMetricsAddr string
	profileJSON        bool
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Profile the columns of a table",
	Long: `Profile every column of a table through the runtime. Columns are given as
name:TYPE pairs; the type decides which queries run (top values for
categorical columns, statistics and histograms for numeric ones, time series
for timestamps). Queries for the --active column are scheduled first.`,
	Example: `  profiler profile --table orders --columns country:VARCHAR,amount:DOUBLE,created_at:TIMESTAMP --active amount`,
	RunE:    runProfile,
}

func init() {
	profileCmd.Flags().StringVar(&profileTable, "table", "", "table to profile")
	profileCmd.Flags().StringVar(&profileColumns, "columns", "", "comma separated name:TYPE column list")
	profileCmd.Flags().StringVar(&profileActive, "active", "", "column whose queries are prioritized")
	profileCmd.Flags().StringVar(&profileInstance, "instance", "", "runtime instance id (overrides config)")
	profileCmd.Flags().StringVar(&profileURL, "url", "", "runtime base URL (overrides config)")
	profileCmd.Flags().IntVar(&profileConcurrency, "concurrency", 0, "concurrent runtime requests (overrides config)")
	profileCmd.Flags().StringVar(&profileMetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while profiling")
	profileCmd.Flags().BoolVar(&profileJSON, "json", false, "print the profile as JSON")
	_ = profileCmd.MarkFlagRequired("table")
	_ = profileCmd.MarkFlagRequired("columns")

	rootCmd.AddCommand(profileCmd)
}

// parseColumns parses "name:TYPE,name:TYPE". A missing type means VARCHAR.
func parseColumns(spec string) ([]profile.Column, error) {
	var columns []profile.Column
	seen := make(map[string]bool)

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, typ, found := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		typ = strings.TrimSpace(typ)
		if name == "" {
			return nil, fmt.Errorf("invalid column %q: missing name", part)
		}
		if !found || typ == "" {
			typ = "VARCHAR"
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = true
		columns = append(columns, profile.Column{Name: name, Type: strings.ToUpper(typ)})
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("no columns given")
	}
	return columns, nil
}

func runProfile(cmd *cobra.Command, args []string) error {
	columns, err := parseColumns(profileColumns)
	if err != nil {
		return err
	}
	if profileActive != "" {
		known := false
		for _, c := range columns {
			known = known || c.Name == profileActive
		}
		if !known {
			return fmt.Errorf("active column %q is not in --columns", profileActive)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if profileInstance != "" {
		cfg.Runtime.InstanceID = profileInstance
	}
	if profileURL != "" {
		cfg.Runtime.URL = profileURL
	}
	if profileConcurrency > 0 {
		cfg.Queue.Concurrency = profileConcurrency
	}
	if profileMetricsAddr != "" {
		cfg.Metrics.Addr = profileMetricsAddr
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	if err := a.Start(); err != nil {
		_ = a.Stop()
		return err
	}
	defer func() {
		if err := a.Stop(); err != nil {
			log.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := a.Profiler().Profile(ctx, profileTable, columns, profileActive)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("profiling interrupted: %w", err)
		}
		return err
	}

	if profileJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printProfile(cmd.OutOrStdout(), result)
}

func printProfile(out io.Writer, p *profile.TableProfile) error {
	fmt.Fprintf(out, "Table: %s (%d rows)\n\n", p.Table, p.Rows)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tTYPE\tNULL %\tDISTINCT\tDETAIL")
	for _, c := range p.Columns {
		name := c.Name
		if c.Active {
			name = "*" + name
		}
		fmt.Fprintf(w, "%s\t%s\t%.1f\t%d\t%s\n",
			name, c.Type, c.NullPercentage*100, c.Cardinality, detail(c))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if failed := p.Failed(); failed > 0 {
		fmt.Fprintf(out, "\n%d queries failed:\n", failed)
		for _, c := range p.Columns {
			for kind, msg := range c.Errors {
				fmt.Fprintf(out, "  %s %s: %s\n", c.Name, kind, msg)
			}
		}
	}
	fmt.Fprintf(out, "\nProfiled in %s\n", p.Duration.Round(time.Millisecond))
	return nil
}

func detail(c profile.ColumnProfile) string {
	switch {
	case c.Statistics != nil:
		return fmt.Sprintf("min=%g max=%g mean=%g", c.Statistics.Min, c.Statistics.Max, c.Statistics.Mean)
	case c.SmallestTimeGrain != "":
		return fmt.Sprintf("grain=%s points=%d", c.SmallestTimeGrain, len(c.TimeSeries))
	case len(c.TopK) > 0:
		return fmt.Sprintf("top=%v (%g)", c.TopK[0].Value, c.TopK[0].Count)
	}
	return ""
}
