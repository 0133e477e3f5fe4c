package route

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"github.com/timvw/pane-relay/internal/model"
	"github.com/timvw/pane-relay/internal/mux"
)

// Deliver pastes payload into cand's pane. On success with auto-focus
// enabled the UI is switched to the pane; a failed focus switch after a
// successful paste comes back as a warning, never as a failure: the
// payload landed.
func (r *Router) Deliver(ctx context.Context, cand *model.Candidate, payload string) (warning string, err error) {
	ctx, span := tracer.Start(ctx, "route.deliver")
	defer span.End()
	span.SetAttributes(
		attribute.String("pane.id", cand.Pane.ID),
		attribute.String("detection.method", cand.Method.String()),
	)

	// New instances are disproportionately likely to still be
	// initializing; give them extra slack before the first attempt.
	if cand.Method == model.MethodNewlyCreated {
		sleep(ctx, r.Cfg.GraceDelayDuration)
	}

	if err := r.ensurePane(ctx, cand); err != nil {
		r.Metrics.RecordDelivery(ctx, "failed")
		return "", err
	}

	// Activate the owning window first so subsequent pane operations
	// land in the intended context.
	if err := r.Mux.SelectWindow(ctx, cand.Pane.ID); err != nil {
		span.SetAttributes(attribute.Bool("delivery.window_select_failed", true))
	}

	err = retry(ctx, r.Cfg.PasteRetries, r.Cfg.RetryDelayDuration, func() (bool, error) {
		perr := r.Mux.Paste(ctx, cand.Pane.ID, payload)
		if perr == nil {
			return false, nil
		}
		// A buffer-load failure is a local I/O problem, not transient
		// contention; retrying cannot help.
		var le *mux.LoadError
		if errors.As(perr, &le) {
			return true, perr
		}
		r.Metrics.RecordRetry(ctx, "paste")
		return false, perr
	})
	if err != nil {
		r.Metrics.RecordDelivery(ctx, "failed")
		return "", fail(model.ReasonDeliveryFailed, err, "pasting payload into %s", cand.Pane.ID)
	}

	if r.Cfg.AutoFocus {
		if ferr := r.focus(ctx, cand); ferr != nil {
			r.Metrics.RecordDelivery(ctx, "partial")
			return "payload delivered, but switching focus failed: " + ferr.Error(), nil
		}
	}

	r.Metrics.RecordDelivery(ctx, "ok")
	return "", nil
}

// ensurePane verifies cand's pane still exists. When the pane id has
// vanished it makes one recovery attempt by window index, since a pane
// id can change identity while the window persists, updating cand in
// place on success.
func (r *Router) ensurePane(ctx context.Context, cand *model.Candidate) error {
	alive, err := r.Mux.PaneExists(ctx, cand.Pane.ID)
	if err == nil && alive {
		return nil
	}

	panes, lerr := r.Mux.ListPanes(ctx)
	if lerr == nil {
		for i := range panes {
			if panes[i].Session == cand.Pane.Session && panes[i].WindowIndex == cand.Pane.WindowIndex {
				cand.Pane = panes[i]
				return nil
			}
		}
	}
	return fail(model.ReasonPaneVanished, nil, "pane %s no longer exists", cand.Pane.ID)
}

// focus re-verifies the pane (it may have vanished during paste), then
// selects the owning window and the pane. A direct pane selection
// failure gets one retry with the fully qualified address.
func (r *Router) focus(ctx context.Context, cand *model.Candidate) error {
	alive, err := r.Mux.PaneExists(ctx, cand.Pane.ID)
	if err != nil || !alive {
		return fail(model.ReasonPaneVanished, err, "pane %s vanished during paste", cand.Pane.ID)
	}
	if err := r.Mux.SelectWindow(ctx, cand.Pane.ID); err != nil {
		return err
	}
	if err := r.Mux.SelectPane(ctx, cand.Pane.ID); err != nil {
		return r.Mux.SelectPane(ctx, cand.Pane.Target())
	}
	return nil
}
