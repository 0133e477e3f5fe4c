package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-relay/internal/model"
	"github.com/timvw/pane-relay/internal/payload"
	"github.com/timvw/pane-relay/internal/route"
)

var (
	flagFile      string
	flagLine      int
	flagColumn    int
	flagSelection bool
	flagContinue  bool
	flagNoFocus   bool
)

var sendCmd = &cobra.Command{
	Use:   "send [message...]",
	Short: "Send a message to the repository's assistant instance",
	Long: `Send a message to the assistant instance bound to this repository,
launching one if none is running.

The message is assembled from the arguments, an optional file location
(--file/--line/--column), and an optional selection read from stdin
(--selection). The result is reported as JSON on stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := repositoryRoot()
		if err != nil {
			return printResult(model.Fail(model.ReasonNoRepositoryRoot, err.Error()))
		}

		text, err := buildPayload(root, strings.Join(args, " "))
		if err != nil {
			return err
		}
		if text == "" {
			return fmt.Errorf("nothing to send: pass a message, --file, or --selection")
		}

		r, tel, err := newRouter(cmd.Context())
		if err != nil {
			return reportErr(err)
		}
		defer tel.Shutdown(cmd.Context())
		r.Cfg.AutoFocus = r.Cfg.AutoFocus && !flagNoFocus

		res := r.Send(cmd.Context(), root, text, route.Options{Continue: flagContinue})
		return printResult(res)
	},
}

func init() {
	sendCmd.Flags().StringVar(&flagFile, "file", "", "file path to reference in the payload")
	sendCmd.Flags().IntVar(&flagLine, "line", 0, "cursor line in --file")
	sendCmd.Flags().IntVar(&flagColumn, "column", 0, "cursor column in --file")
	sendCmd.Flags().BoolVar(&flagSelection, "selection", false, "read selected text from stdin")
	sendCmd.Flags().BoolVar(&flagContinue, "continue", true, "launch a new instance with conversation continuation")
	sendCmd.Flags().BoolVar(&flagNoFocus, "no-focus", false, "do not switch focus to the pane after delivery")
	rootCmd.AddCommand(sendCmd)
}

// buildPayload assembles the delivery text from the message and the
// editor-provided working context.
func buildPayload(root, message string) (string, error) {
	wc := model.WorkingContext{
		FilePath:       flagFile,
		RepositoryRoot: root,
		CursorLine:     flagLine,
		CursorColumn:   flagColumn,
	}
	if flagSelection {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading selection from stdin: %w", err)
		}
		wc.SelectionText = string(data)
	}
	return payload.Format(wc, message), nil
}

// printResult writes the structured result to stdout. A failed result
// also yields a non-zero exit through the returned error.
func printResult(res model.Result) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if res.Warning != "" {
		fmt.Fprintf(os.Stderr, "warning: %s\n", res.Warning)
	}
	if !res.OK {
		return fmt.Errorf("%s", res.Message)
	}
	return nil
}
