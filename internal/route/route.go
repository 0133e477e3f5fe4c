// Package route is the arbitration core: given a repository root it
// resolves exactly one assistant instance (remembered, discovered,
// chosen, or freshly provisioned) and delivers a payload into its pane.
//
// Within one operation the phases never interleave: discovery completes
// before arbitration, arbitration before delivery. Everything external
// is a blocking call through the multiplexer; there is no background
// polling.
package route

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/timvw/pane-relay/internal/binding"
	"github.com/timvw/pane-relay/internal/classify"
	"github.com/timvw/pane-relay/internal/config"
	"github.com/timvw/pane-relay/internal/model"
	"github.com/timvw/pane-relay/internal/mux"
	telem "github.com/timvw/pane-relay/internal/otel"
	"github.com/timvw/pane-relay/internal/proc"
	"github.com/timvw/pane-relay/internal/ready"
	"github.com/timvw/pane-relay/internal/summary"
)

var tracer = otel.Tracer("pane-relay/route")

// ErrCancelled reports that the user declined to choose a candidate.
var ErrCancelled = errors.New("selection cancelled")

// Chooser resolves an ambiguous candidate set. Candidates arrive
// ordered (current-session members first). Implementations return the
// selected candidate, createNew when the user asked for a fresh
// instance, or ErrCancelled.
type Chooser interface {
	Choose(ctx context.Context, candidates []model.Candidate) (choice *model.Candidate, createNew bool, err error)
}

// Options selects per-operation behavior.
type Options struct {
	// ForceNew always provisions a fresh instance, skipping discovery
	// and the remembered binding.
	ForceNew bool
	// Continue passes the configured continuation args to a newly
	// provisioned launcher.
	Continue bool
}

// Router wires the discovery, arbitration, and delivery machinery.
type Router struct {
	Mux      mux.Multiplexer
	Bindings *binding.Cache
	Chooser  Chooser
	Cfg      *config.Config
	Metrics  *telem.Metrics

	// Summarizer optionally annotates chooser entries. Nil disables
	// summaries.
	Summarizer summary.Summarizer

	// Snapshot takes the per-operation process table. Defaults to
	// proc.Snapshot.
	Snapshot func(ctx context.Context) proc.Table
}

// New creates a Router with the default process-table source.
func New(m mux.Multiplexer, bindings *binding.Cache, chooser Chooser, cfg *config.Config, metrics *telem.Metrics) *Router {
	return &Router{
		Mux:      m,
		Bindings: bindings,
		Chooser:  chooser,
		Cfg:      cfg,
		Metrics:  metrics,
		Snapshot: proc.Snapshot,
	}
}

// Send resolves an instance for root and delivers payload into it. The
// full outcome, including partial-success warnings, is reported as a
// structured result rather than an error.
func (r *Router) Send(ctx context.Context, root, payload string, opts Options) model.Result {
	ctx, span := tracer.Start(ctx, "route.send",
		trace.WithAttributes(attribute.String("repository.root", root)))
	defer span.End()

	cand, err := r.Resolve(ctx, root, opts)
	if err != nil {
		return resultOf(err)
	}

	// A blocked instance never receives a payload. Freshly provisioned
	// instances skip the check; they are still booting and delivery
	// already waits a grace delay for them.
	if cand.Method != model.MethodNewlyCreated {
		prober := ready.NewProber(r.Mux)
		prober.CaptureLines = r.Cfg.CaptureLines
		status := prober.Check(ctx, cand.Pane.ID)
		if !status.Ready {
			return model.Fail(model.ReasonInstanceNotReady, status.Reason)
		}
	}

	warning, err := r.Deliver(ctx, cand, payload)
	if err != nil {
		return resultOf(err)
	}
	res := model.Ok(cand)
	res.Warning = warning
	return res
}

// Resolve turns a repository root into exactly one assistant candidate,
// walking the arbitration states: remembered binding, full discovery,
// single use, external choice, or provisioning.
func (r *Router) Resolve(ctx context.Context, root string, opts Options) (*model.Candidate, error) {
	ctx, span := tracer.Start(ctx, "route.resolve")
	defer span.End()

	if opts.ForceNew {
		// An explicit "create new" request is never satisfied from
		// history and never recorded into it.
		span.SetAttributes(attribute.String("resolve.state", "create"))
		return r.Provision(ctx, root, r.Cfg.LaunchArgs(opts.Continue))
	}

	if cand := r.remembered(ctx, root); cand != nil {
		span.SetAttributes(attribute.String("resolve.state", "use-cached"))
		return cand, nil
	}

	candidates := r.Discover(ctx, root)
	span.SetAttributes(attribute.Int("resolve.candidates", len(candidates)))

	switch len(candidates) {
	case 0:
		span.SetAttributes(attribute.String("resolve.state", "create"))
		cand, err := r.Provision(ctx, root, r.Cfg.LaunchArgs(opts.Continue))
		if err != nil {
			return nil, err
		}
		// The candidate set was empty, so the fresh instance is the
		// root's sole instance and safe to remember.
		r.remember(root, cand)
		return cand, nil

	case 1:
		span.SetAttributes(attribute.String("resolve.state", "use-single"))
		cand := &candidates[0]
		r.remember(root, cand)
		return cand, nil

	default:
		span.SetAttributes(attribute.String("resolve.state", "choose"))
		return r.choose(ctx, root, candidates, opts)
	}
}

// remembered returns the cached candidate for root when its pane is
// still alive. A failed liveness check clears the binding so the caller
// falls through to full discovery.
func (r *Router) remembered(ctx context.Context, root string) *model.Candidate {
	if r.Bindings == nil || !r.Cfg.Remember {
		return nil
	}
	entry, ok := r.Bindings.Get(root)
	if !ok {
		r.Metrics.RecordBindingMiss(ctx)
		return nil
	}

	alive, err := r.Mux.PaneExists(ctx, entry.PaneID)
	if err != nil || !alive {
		r.Metrics.RecordBindingInvalidation(ctx)
		if cerr := r.Bindings.Clear(root); cerr != nil {
			fmt.Fprintf(os.Stderr, "warning: clearing stale binding: %v\n", cerr)
		}
		return nil
	}

	r.Metrics.RecordBindingHit(ctx)
	return &model.Candidate{
		Pane: model.Pane{
			ID:          entry.PaneID,
			Session:     entry.Session,
			WindowName:  entry.WindowName,
			WindowIndex: entry.WindowIndex,
			Path:        root,
		},
		Method:         entry.Method,
		CurrentSession: entry.Session == r.Mux.CurrentSession(ctx),
	}
}

// Discover runs full classification across the live pane table.
func (r *Router) Discover(ctx context.Context, root string) []model.Candidate {
	ctx, span := tracer.Start(ctx, "route.discover")
	defer span.End()

	panes, err := r.Mux.ListPanes(ctx)
	if err != nil {
		// No pane table means zero candidates, not a fatal condition.
		fmt.Fprintf(os.Stderr, "warning: listing panes: %v\n", err)
		return nil
	}

	snapshot := r.Snapshot
	if snapshot == nil {
		snapshot = proc.Snapshot
	}

	classifier := classify.New(r.Mux, snapshot(ctx), r.Cfg.Launcher, r.Cfg.WindowName)
	classifier.CaptureLines = r.Cfg.CaptureLines
	classifier.CurrentSession = r.Mux.CurrentSession(ctx)

	candidates := classifier.ClassifyAll(ctx, panes, root)
	for _, c := range candidates {
		r.Metrics.RecordClassification(ctx, c.Method.String())
	}
	return candidates
}

// choose orders the ambiguous set and hands it to the external chooser.
// Selections from an ambiguous set are never cached.
func (r *Router) choose(ctx context.Context, root string, candidates []model.Candidate, opts Options) (*model.Candidate, error) {
	sortCandidates(candidates)

	if r.Summarizer != nil {
		capture := func(ctx context.Context, target string) (string, error) {
			return r.Mux.CapturePane(ctx, target, r.Cfg.CaptureLines)
		}
		summary.Fill(ctx, r.Summarizer, capture, candidates, r.Cfg.SummaryTimeoutDuration, r.Metrics)
	}

	if r.Chooser == nil {
		return nil, fail(model.ReasonSelectionCancelled, nil,
			"%d instances match and no chooser is available", len(candidates))
	}

	choice, createNew, err := r.Chooser.Choose(ctx, candidates)
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			return nil, fail(model.ReasonSelectionCancelled, err, "selection cancelled")
		}
		return nil, fail(model.ReasonSelectionCancelled, err, "chooser failed")
	}
	if createNew {
		return r.Provision(ctx, root, r.Cfg.LaunchArgs(opts.Continue))
	}
	return choice, nil
}

// remember records cand for root when remembering is enabled.
func (r *Router) remember(root string, cand *model.Candidate) {
	if r.Bindings == nil || !r.Cfg.Remember {
		return
	}
	if err := r.Bindings.Set(root, *cand); err != nil {
		fmt.Fprintf(os.Stderr, "warning: saving binding: %v\n", err)
	}
}

// sortCandidates orders current-session members first, then by numeric
// pane id for a stable presentation.
func sortCandidates(candidates []model.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.CurrentSession != b.CurrentSession {
			return a.CurrentSession
		}
		return paneNumber(a.Pane.ID) < paneNumber(b.Pane.ID)
	})
}

// paneNumber extracts the numeric part of a "%N" pane id. Unparseable
// ids sort last.
func paneNumber(id string) int {
	if len(id) > 1 && id[0] == '%' {
		if n, err := strconv.Atoi(id[1:]); err == nil {
			return n
		}
	}
	return int(^uint(0) >> 1)
}

// sleep waits for d unless ctx is done first.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
