package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-relay/internal/model"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List assistant candidates for this repository",
	Long: `Run full discovery for this repository and print every pane classified
as an assistant candidate, with its detection method, as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := repositoryRoot()
		if err != nil {
			return printResult(model.Fail(model.ReasonNoRepositoryRoot, err.Error()))
		}

		r, tel, err := newRouter(cmd.Context())
		if err != nil {
			return reportErr(err)
		}
		defer tel.Shutdown(cmd.Context())

		candidates := r.Discover(cmd.Context(), root)

		out := struct {
			Root       string            `json:"root"`
			Candidates []model.Candidate `json:"candidates"`
		}{
			Root:       root,
			Candidates: candidates,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
