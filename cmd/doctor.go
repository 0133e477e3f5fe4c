package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the environment pane-relay needs",
	RunE: func(cmd *cobra.Command, args []string) error {
		healthy := true
		report := func(ok bool, label, detail string) {
			mark := "ok"
			if !ok {
				mark = "FAIL"
				healthy = false
			}
			if detail != "" {
				fmt.Printf("%-4s %s (%s)\n", mark, label, detail)
			} else {
				fmt.Printf("%-4s %s\n", mark, label)
			}
		}

		m, err := getMultiplexer()
		if err != nil {
			report(false, "multiplexer available", err.Error())
		} else {
			report(true, "multiplexer available", m.Name())
			panes, lerr := m.ListPanes(cmd.Context())
			switch {
			case lerr != nil:
				report(false, "multiplexer server running", lerr.Error())
			case len(panes) == 0:
				report(false, "multiplexer server running", "no panes; is the server started?")
			default:
				report(true, "multiplexer server running", fmt.Sprintf("%d panes", len(panes)))
			}
		}

		if root, rerr := repositoryRoot(); rerr != nil {
			report(false, "inside a git repository", rerr.Error())
		} else {
			report(true, "inside a git repository", root)
		}

		cfg, cerr := loadConfig()
		if cerr != nil {
			report(false, "configuration loads", cerr.Error())
		} else {
			detail := "built-in defaults"
			if cfg.ConfigFile != "" {
				detail = cfg.ConfigFile
			}
			report(true, "configuration loads", detail)
			if cfg.Provider != "" && cfg.APIKey == "" {
				report(false, "summary provider usable", "provider set but no API key")
			}
		}

		if !healthy {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
