package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/timvw/pane-relay/internal/model"
	"github.com/timvw/pane-relay/internal/proc"
)

const promptContent = `
Some earlier output

╭──────────────────────────────╮
│ >                            │
╰──────────────────────────────╯
`

const shellContent = `
$ ls
README.md  go.mod
$
`

type fakeMux struct {
	captures map[string]string
	renamed  map[string]string
}

func newFakeMux() *fakeMux {
	return &fakeMux{captures: map[string]string{}, renamed: map[string]string{}}
}

func (f *fakeMux) Name() string                                     { return "fake" }
func (f *fakeMux) ListPanes(ctx context.Context) ([]model.Pane, error) { return nil, nil }
func (f *fakeMux) CapturePane(ctx context.Context, target string, lines int) (string, error) {
	content, ok := f.captures[target]
	if !ok {
		return "", errors.New("no such pane")
	}
	return content, nil
}
func (f *fakeMux) PaneExists(ctx context.Context, paneID string) (bool, error) { return true, nil }
func (f *fakeMux) NewWindow(ctx context.Context, name, dir, command string) (model.Pane, error) {
	return model.Pane{}, errors.New("not supported")
}
func (f *fakeMux) RenameWindow(ctx context.Context, target, name string) error {
	f.renamed[target] = name
	return nil
}
func (f *fakeMux) SelectWindow(ctx context.Context, target string) error { return nil }
func (f *fakeMux) SelectPane(ctx context.Context, target string) error   { return nil }
func (f *fakeMux) Paste(ctx context.Context, target, content string) error {
	return nil
}
func (f *fakeMux) SendKeys(ctx context.Context, target, keys string, literal bool) error {
	return nil
}
func (f *fakeMux) CurrentSession(ctx context.Context) string { return "" }

type fakeTable struct {
	records  map[int]proc.Record
	children map[int][]proc.Record
	cwds     map[int]string
}

func (f *fakeTable) Lookup(pid int) *proc.Record {
	if rec, ok := f.records[pid]; ok {
		return &rec
	}
	return nil
}
func (f *fakeTable) Children(pid int) []proc.Record { return f.children[pid] }
func (f *fakeTable) WorkingDir(pid int) string      { return f.cwds[pid] }

func newClassifier(m *fakeMux, t *fakeTable) *Classifier {
	c := New(m, t, "claude", "claude")
	c.CurrentSession = "main"
	return c
}

func pane(id, command, path string) model.Pane {
	return model.Pane{
		ID: id, Session: "main", WindowName: "dev",
		Command: command, Path: path, PID: 100,
	}
}

func TestClassifyRejectsOtherDirectories(t *testing.T) {
	m := newFakeMux()
	c := newClassifier(m, &fakeTable{})

	tests := []struct {
		name string
		path string
	}{
		{"subdirectory", "/home/u/repo/internal"},
		{"sibling", "/home/u/repo2"},
		{"parent", "/home/u"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := pane("%1", "claude", tt.path)
			if got := c.Classify(context.Background(), p, "/home/u/repo"); got != nil {
				t.Errorf("classified pane in %q against root /home/u/repo", tt.path)
			}
		})
	}
}

func TestClassifyResolvesEmptyPanePath(t *testing.T) {
	// tmux sometimes reports an empty pane path; the process's own cwd
	// decides before the pane is rejected.
	m := newFakeMux()
	m.captures["%1"] = shellContent
	table := &fakeTable{cwds: map[int]string{100: "/repo"}}
	c := newClassifier(m, table)

	got := c.Classify(context.Background(), pane("%1", "claude", ""), "/repo")
	if got == nil {
		t.Fatal("expected a candidate via process cwd")
	}
	if got.Method != model.MethodExactCommand {
		t.Errorf("method = %v, want exact-command-match", got.Method)
	}
}

func TestFindPaneByPID(t *testing.T) {
	panes := []model.Pane{
		{ID: "%1", PID: 100},
		{ID: "%2", PID: 300},
	}
	table := &fakeTable{records: map[int]proc.Record{
		200: {PID: 200, PPID: 100, CommandLine: "claude"},
	}}

	if got := FindPaneByPID(panes, table, 300); got == nil || got.ID != "%2" {
		t.Errorf("own-pid lookup = %v, want %%2", got)
	}
	if got := FindPaneByPID(panes, table, 200); got == nil || got.ID != "%1" {
		t.Errorf("parent-pid lookup = %v, want %%1", got)
	}
	if got := FindPaneByPID(panes, table, 999); got != nil {
		t.Errorf("unknown pid mapped to %v, want nil", got)
	}
}

func TestClassifyExactCommand(t *testing.T) {
	m := newFakeMux()
	m.captures["%1"] = shellContent // no prompt border: no upgrade
	c := newClassifier(m, &fakeTable{})

	got := c.Classify(context.Background(), pane("%1", "claude", "/repo"), "/repo")
	if got == nil {
		t.Fatal("expected a candidate")
	}
	if got.Method != model.MethodExactCommand {
		t.Errorf("method = %v, want exact-command-match", got.Method)
	}
	if !got.CurrentSession {
		t.Error("pane in the invoking session should be marked CurrentSession")
	}
}

func TestClassifyPathMatch(t *testing.T) {
	m := newFakeMux()
	m.captures["%1"] = shellContent
	c := newClassifier(m, &fakeTable{})

	got := c.Classify(context.Background(), pane("%1", "/usr/local/bin/claude", "/repo"), "/repo")
	if got == nil {
		t.Fatal("expected a candidate")
	}
	if got.Method != model.MethodPathMatch {
		t.Errorf("method = %v, want path-match", got.Method)
	}
}

func TestClassifyChildProcess(t *testing.T) {
	m := newFakeMux()
	m.captures["%1"] = shellContent
	table := &fakeTable{children: map[int][]proc.Record{
		100: {{PID: 200, PPID: 100, CommandLine: "node /home/u/.local/bin/claude"}},
	}}
	c := newClassifier(m, table)

	got := c.Classify(context.Background(), pane("%1", "node", "/repo"), "/repo")
	if got == nil {
		t.Fatal("expected a candidate")
	}
	if got.Method != model.MethodChildProcess {
		t.Errorf("method = %v, want child-process-match", got.Method)
	}
}

func TestClassifyBareRuntimeWithoutLauncherChild(t *testing.T) {
	m := newFakeMux()
	m.captures["%1"] = shellContent
	table := &fakeTable{children: map[int][]proc.Record{
		100: {{PID: 200, PPID: 100, CommandLine: "node server.js"}},
	}}
	c := newClassifier(m, table)

	if got := c.Classify(context.Background(), pane("%1", "node", "/repo"), "/repo"); got != nil {
		t.Errorf("classified a plain node server as %v", got.Method)
	}
}

func TestProbeUpgradesToRenderedPrompt(t *testing.T) {
	m := newFakeMux()
	m.captures["%1"] = promptContent
	c := newClassifier(m, &fakeTable{})

	got := c.Classify(context.Background(), pane("%1", "claude", "/repo"), "/repo")
	if got == nil {
		t.Fatal("expected a candidate")
	}
	if got.Method != model.MethodRenderedPrompt {
		t.Errorf("method = %v, want rendered-prompt-match after probe confirmation", got.Method)
	}
	if !got.Method.Stronger(model.MethodExactCommand) {
		t.Error("rendered-prompt-match must outrank exact-command-match")
	}
	if got.LastLine == "" {
		t.Error("probe capture should populate LastLine")
	}
}

func TestProbeFailureKeepsWeakerMethod(t *testing.T) {
	// A booting assistant renders no prompt yet; a capture failure must
	// not discard a name-based match.
	m := newFakeMux() // no captures registered
	c := newClassifier(m, &fakeTable{})

	got := c.Classify(context.Background(), pane("%1", "claude", "/repo"), "/repo")
	if got == nil {
		t.Fatal("expected a candidate")
	}
	if got.Method != model.MethodExactCommand {
		t.Errorf("method = %v, want exact-command-match retained", got.Method)
	}
}

func TestWindowNameNeedsPromptEvidence(t *testing.T) {
	m := newFakeMux()
	m.captures["%1"] = shellContent
	c := newClassifier(m, &fakeTable{})

	p := pane("%1", "zsh", "/repo")
	p.WindowName = "claude"
	if got := c.Classify(context.Background(), p, "/repo"); got != nil {
		t.Errorf("accepted a renamed shell window as %v", got.Method)
	}
}

func TestWindowNameWithPromptMarker(t *testing.T) {
	// Border scrolled off, bare prompt character remains: enough for a
	// window-name match but not for rendered-prompt.
	m := newFakeMux()
	m.captures["%1"] = "old output\n❯ \n"
	c := newClassifier(m, &fakeTable{})

	p := pane("%1", "zsh", "/repo")
	p.WindowName = "claude"
	got := c.Classify(context.Background(), p, "/repo")
	if got == nil {
		t.Fatal("expected a candidate")
	}
	if got.Method != model.MethodWindowName {
		t.Errorf("method = %v, want window-name-match", got.Method)
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	m := newFakeMux()
	m.captures["%1"] = promptContent
	c := newClassifier(m, &fakeTable{})
	p := pane("%1", "claude", "/repo")

	first := c.Classify(context.Background(), p, "/repo")
	second := c.Classify(context.Background(), p, "/repo")
	if first == nil || second == nil {
		t.Fatal("expected candidates on both runs")
	}
	if first.Method != second.Method || first.Pane.ID != second.Pane.ID {
		t.Errorf("classification changed between runs: %+v vs %+v", first, second)
	}
}

func TestClassifyAllAggressiveFallback(t *testing.T) {
	m := newFakeMux()
	m.captures["%2"] = promptContent
	c := newClassifier(m, &fakeTable{})

	panes := []model.Pane{
		pane("%1", "vim", "/repo"),        // deny-listed
		pane("%2", "mywrapper", "/repo"),  // unknown command, prompt on screen
		pane("%3", "zsh", "/elsewhere"),   // wrong root
	}
	got := c.ClassifyAll(context.Background(), panes, "/repo")
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].Pane.ID != "%2" || got[0].Method != model.MethodAggressiveFallback {
		t.Errorf("got %s via %v, want %%2 via aggressive-fallback", got[0].Pane.ID, got[0].Method)
	}
}

func TestAggressiveFallbackVendorToken(t *testing.T) {
	m := newFakeMux()
	m.captures["%1"] = shellContent
	table := &fakeTable{records: map[int]proc.Record{
		100: {PID: 100, CommandLine: "/bin/sh /opt/tools/run-claude.sh"},
	}}
	c := newClassifier(m, table)

	got := c.ClassifyAll(context.Background(), []model.Pane{pane("%1", "run-claude.s", "/repo")}, "/repo")
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].Method != model.MethodAggressiveFallback {
		t.Errorf("method = %v, want aggressive-fallback", got[0].Method)
	}
}

func TestAggressiveFallbackSkippedWhenDirectMatchExists(t *testing.T) {
	m := newFakeMux()
	m.captures["%1"] = shellContent
	m.captures["%2"] = promptContent
	c := newClassifier(m, &fakeTable{})

	// %2 would pass the fallback's border probe, but %1 matches directly,
	// so the fallback pass never runs.
	panes := []model.Pane{
		pane("%1", "claude", "/repo"),
		pane("%2", "mywrapper", "/repo"),
	}
	got := c.ClassifyAll(context.Background(), panes, "/repo")
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].Pane.ID != "%1" || got[0].Method != model.MethodExactCommand {
		t.Errorf("got %s via %v, want %%1 via exact-command-match", got[0].Pane.ID, got[0].Method)
	}
}

func TestClassifyAllRenamesWindows(t *testing.T) {
	m := newFakeMux()
	m.captures["%1"] = promptContent
	c := newClassifier(m, &fakeTable{})

	c.ClassifyAll(context.Background(), []model.Pane{pane("%1", "claude", "/repo")}, "/repo")
	if m.renamed["%1"] != "claude" {
		t.Errorf("window not renamed to canonical name, renames = %v", m.renamed)
	}

	// Second run: already canonical, no further rename.
	m.renamed = map[string]string{}
	p := pane("%1", "claude", "/repo")
	p.WindowName = "claude"
	c.ClassifyAll(context.Background(), []model.Pane{p}, "/repo")
	if len(m.renamed) != 0 {
		t.Errorf("renamed an already-canonical window: %v", m.renamed)
	}
}
