package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-relay/internal/model"
	"github.com/timvw/pane-relay/internal/route"
)

var newCmd = &cobra.Command{
	Use:   "new [message...]",
	Short: "Always launch a fresh assistant instance",
	Long: `Launch a fresh assistant instance in a new window, ignoring any
running instances and the remembered binding. The new instance starts
without conversation continuation.

With a message, the payload is delivered once the instance is up.`,
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

		opts := route.Options{ForceNew: true}
		message := strings.Join(args, " ")
		if message != "" {
			return printResult(r.Send(cmd.Context(), root, message, opts))
		}

		// No payload: just provision and report the new instance.
		cand, err := r.Resolve(cmd.Context(), root, opts)
		if err != nil {
			return reportErr(err)
		}
		return printResult(model.Ok(cand))
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
}
