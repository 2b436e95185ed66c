package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/harun/profiler/pkg/priority"
	"github.com/spf13/cobra"
)

var prioritiesCmd = &cobra.Command{
	Use:   "priorities [kind...]",
	Short: "Print the query priority table",
	Long: `Print the scheduling priority of every query kind for active and inactive
columns. Lower values are sent sooner. The runtime column shows the value
forwarded to the runtime, where higher values run sooner.`,
	RunE: runPriorities,
}

func init() {
	rootCmd.AddCommand(prioritiesCmd)
}

func runPriorities(cmd *cobra.Command, args []string) error {
	kinds := priority.Kinds()
	if len(args) > 0 {
		kinds = kinds[:0:0]
		for _, arg := range args {
			kind, ok := priority.Parse(arg)
			if !ok {
				return fmt.Errorf("unknown query kind %q", arg)
			}
			kinds = append(kinds, kind)
		}
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tACTIVE\tINACTIVE\tRUNTIME (ACTIVE/INACTIVE)")
	for _, kind := range kinds {
		active := priority.For(kind, true)
		inactive := priority.For(kind, false)
		fmt.Fprintf(w, "%s\t%d\t%d\t%d/%d\n", kind, active, inactive, priority.Backend(active), priority.Backend(inactive))
	}
	return w.Flush()
}
