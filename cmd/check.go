package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-relay/internal/model"
	"github.com/timvw/pane-relay/internal/ready"
)

// candidateStatus pairs a candidate with its readiness verdict.
type candidateStatus struct {
	model.Candidate
	Ready  bool   `json:"ready"`
	Reason string `json:"reason,omitempty"`
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report readiness of this repository's assistant candidates",
	Long: `Run discovery for this repository and probe each candidate's rendered
content for readiness: is the input prompt empty and accepting text, or
is the instance blocked on a menu, permission dialog, or mid-response.`,
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

		prober := ready.NewProber(r.Mux)
		prober.CaptureLines = r.Cfg.CaptureLines

		var out []candidateStatus
		for _, cand := range r.Discover(cmd.Context(), root) {
			status := prober.Check(cmd.Context(), cand.Pane.ID)
			out = append(out, candidateStatus{
				Candidate: cand,
				Ready:     status.Ready,
				Reason:    status.Reason,
			})
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Root       string            `json:"root"`
			Candidates []candidateStatus `json:"candidates"`
		}{Root: root, Candidates: out})
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
