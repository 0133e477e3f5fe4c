package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-relay/internal/binding"
	"github.com/timvw/pane-relay/internal/model"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the remembered instance binding for this repository",
	Long: `Forget the remembered pane binding for this repository. The next send
runs full discovery again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := repositoryRoot()
		if err != nil {
			return printResult(model.Fail(model.ReasonNoRepositoryRoot, err.Error()))
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path := cfg.BindingPath
		if path == "" {
			if path, err = binding.DefaultPath(); err != nil {
				return fmt.Errorf("no binding path available: %w", err)
			}
		}

		if err := binding.Open(path).Clear(root); err != nil {
			return fmt.Errorf("clearing binding for %s: %w", root, err)
		}
		return printResult(model.Ok(nil))
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
