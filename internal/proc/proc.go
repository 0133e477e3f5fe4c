// Package proc provides a snapshot view of the OS process table, used
// to bridge a pane's shell pid to the assistant process running under
// it. Panes commonly report a shell's pid; the assistant may be a child
// or grandchild of it.
package proc

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
)

// Record is one process table entry.
type Record struct {
	PID         int
	PPID        int
	CommandLine string
}

// Name returns the bare executable name from the command line.
func (r Record) Name() string {
	fields := strings.Fields(r.CommandLine)
	if len(fields) == 0 {
		return ""
	}
	name := fields[0]
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}

// Table answers process queries. The production implementation snapshots
// the whole table with a single ps call; tests inject a fixed table.
type Table interface {
	// Lookup returns the record for pid, or nil when the process does
	// not exist or the table could not be read. Process info is
	// best-effort, never fatal.
	Lookup(pid int) *Record

	// Children returns the direct children of pid.
	Children(pid int) []Record

	// WorkingDir resolves the working directory of a foreign pid via
	// the OS's open-file-descriptor table. Returns "" when unavailable.
	WorkingDir(pid int) string
}

// Snapshot reads the process table once via `ps -eo pid,ppid,args` and
// returns a Table backed by it. A ps failure yields an empty table, not
// an error: every caller treats missing process info as a weaker signal,
// not a broken operation.
func Snapshot(ctx context.Context) Table {
	t := &snapshot{
		byPID:    map[int]Record{},
		children: map[int][]Record{},
	}

	// "pid=" and "ppid=" suppress the header; "args=" gives the full
	// command line.
	out, err := exec.CommandContext(ctx, "ps", "-eo", "pid=,ppid=,args=").Output()
	if err != nil {
		return t
	}
	t.load(string(out))
	return t
}

type snapshot struct {
	byPID    map[int]Record
	children map[int][]Record
}

func (t *snapshot) load(out string) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rec, ok := parsePSLine(line)
		if !ok {
			continue
		}
		t.byPID[rec.PID] = rec
		t.children[rec.PPID] = append(t.children[rec.PPID], rec)
	}
}

func (t *snapshot) Lookup(pid int) *Record {
	if rec, ok := t.byPID[pid]; ok {
		return &rec
	}
	return nil
}

func (t *snapshot) Children(pid int) []Record {
	return t.children[pid]
}

// WorkingDir resolves a foreign pid's cwd with lsof. A process's own
// working directory is not readable across pids on every platform, but
// the cwd file descriptor is.
func (t *snapshot) WorkingDir(pid int) string {
	out, err := exec.Command("lsof", "-a", "-p", strconv.Itoa(pid), "-d", "cwd", "-Fn").Output()
	if err != nil {
		return ""
	}
	// -Fn output: one field per line, the name field prefixed with 'n'.
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "n") && len(line) > 1 {
			return strings.TrimRight(line[1:], " \t")
		}
	}
	return ""
}

// parsePSLine parses "PID PPID ARGS..." where ARGS may contain spaces.
// ps pads columns with variable whitespace, so the first two numeric
// fields are peeled off and the remainder is the command line.
func parsePSLine(line string) (Record, bool) {
	pidStr, rest := nextField(line)
	ppidStr, args := nextField(rest)

	pid, err1 := strconv.Atoi(pidStr)
	ppid, err2 := strconv.Atoi(ppidStr)
	if err1 != nil || err2 != nil {
		return Record{}, false
	}
	args = strings.TrimSpace(args)
	if args == "" {
		return Record{}, false
	}
	return Record{PID: pid, PPID: ppid, CommandLine: args}, true
}

// nextField splits off the first whitespace-delimited field.
func nextField(s string) (field, rest string) {
	s = strings.TrimSpace(s)
	idx := strings.IndexByte(s, ' ')
	if idx < 0 {
		return s, ""
	}
	return s[:idx], s[idx+1:]
}
