package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kdduha/detection-api/internal/detector"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List supported models and aliases",
	Run: func(cmd *cobra.Command, args []string) {
		aliases := map[detector.ModelName][]string{}
		for alias, name := range detector.Aliases() {
			aliases[name] = append(aliases[name], alias)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "MODEL\tALIASES")
		fmt.Fprintln(w, "-----\t-------")
		for _, m := range detector.SupportedModels() {
			a := aliases[m]
			sort.Strings(a)
			fmt.Fprintf(w, "%s\t%v\n", m, a)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
