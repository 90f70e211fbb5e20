package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/container"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/workflow"
)

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "Print the stage catalog and transition table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		reg, err := container.ProvideRegistry(&cfg.ToContainerConfig().Workflow)
		if err != nil {
			return err
		}

		stages := reg.Stages()
		var rules []workflow.Rule
		for _, s := range stages {
			rules = append(rules, reg.Table().Rules(s.Name)...)
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"stages":      stages,
				"transitions": rules,
			})
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTAGE\tFLOW\tTERMINAL\tREQUIRES")
		for _, s := range stages {
			fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%v\n", s.ID, s.Name, s.AppliesTo, s.Terminal, s.Requires)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "FROM\tACTION\tTO\tGUARDED")
		for _, r := range rules {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", r.From, r.Action, r.To, r.Guarded)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(stagesCmd)
	stagesCmd.Flags().Bool("json", false, "Print as JSON")
}
