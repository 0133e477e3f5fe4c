package proc

import "testing"

const psOutput = `    1     0 /sbin/init
  100     1 tmux
  200   100 -zsh
  300   200 node /home/u/.local/bin/claude --continue
  301   200 node /home/u/project/server.js
  400     1 sshd: u@pts/0
`

func newTestSnapshot() *snapshot {
	t := &snapshot{
		byPID:    map[int]Record{},
		children: map[int][]Record{},
	}
	t.load(psOutput)
	return t
}

func TestSnapshotLookup(t *testing.T) {
	s := newTestSnapshot()

	rec := s.Lookup(300)
	if rec == nil {
		t.Fatal("expected record for pid 300")
	}
	if rec.PPID != 200 {
		t.Errorf("PPID: got %d, want 200", rec.PPID)
	}
	if rec.CommandLine != "node /home/u/.local/bin/claude --continue" {
		t.Errorf("CommandLine: got %q", rec.CommandLine)
	}

	if s.Lookup(999) != nil {
		t.Error("expected nil for unknown pid")
	}
}

func TestSnapshotChildren(t *testing.T) {
	s := newTestSnapshot()

	kids := s.Children(200)
	if len(kids) != 2 {
		t.Fatalf("expected 2 children of 200, got %d", len(kids))
	}
	if kids[0].PID != 300 || kids[1].PID != 301 {
		t.Errorf("unexpected children: %+v", kids)
	}

	if got := s.Children(301); len(got) != 0 {
		t.Errorf("expected no children of leaf pid, got %d", len(got))
	}
}

func TestRecordName(t *testing.T) {
	tests := []struct {
		cmdline string
		want    string
	}{
		{"node /home/u/.local/bin/claude", "node"},
		{"/usr/local/bin/claude --continue", "claude"},
		{"-zsh", "-zsh"},
		{"", ""},
	}
	for _, tt := range tests {
		r := Record{CommandLine: tt.cmdline}
		if got := r.Name(); got != tt.want {
			t.Errorf("Name(%q): got %q, want %q", tt.cmdline, got, tt.want)
		}
	}
}

func TestParsePSLine(t *testing.T) {
	rec, ok := parsePSLine("  300   200 node server.js --port 8080")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if rec.PID != 300 || rec.PPID != 200 {
		t.Errorf("got pid=%d ppid=%d", rec.PID, rec.PPID)
	}
	if rec.CommandLine != "node server.js --port 8080" {
		t.Errorf("CommandLine: got %q", rec.CommandLine)
	}

	// Trailing whitespace must be tolerated.
	rec, ok = parsePSLine("300 200 claude   ")
	if !ok || rec.CommandLine != "claude" {
		t.Errorf("trailing whitespace: ok=%v rec=%+v", ok, rec)
	}

	if _, ok := parsePSLine("garbage line"); ok {
		t.Error("expected parse failure for non-numeric fields")
	}
	if _, ok := parsePSLine("300 200"); ok {
		t.Error("expected parse failure for missing args")
	}
}
