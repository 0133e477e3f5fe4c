package route

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/timvw/pane-relay/internal/model"
)

// provisionVerifyAttempts bounds the post-creation pane re-query.
const provisionVerifyAttempts = 3

// Provision creates a new assistant window rooted at root and verifies
// the pane actually exists before returning it. The launcher usually
// takes a while to present its prompt; provisioning only waits for pane
// existence, readiness is delivery's problem.
func (r *Router) Provision(ctx context.Context, root string, launchArgs []string) (*model.Candidate, error) {
	ctx, span := tracer.Start(ctx, "route.provision")
	defer span.End()

	command := r.Cfg.Launcher
	if len(launchArgs) > 0 {
		command += " " + strings.Join(launchArgs, " ")
	}
	span.SetAttributes(attribute.String("provision.command", command))

	created, err := r.Mux.NewWindow(ctx, r.Cfg.WindowName, root, command)
	if err != nil {
		r.Metrics.RecordProvision(ctx, "failed")
		return nil, fail(model.ReasonProvisionFailed, err, "creating assistant window")
	}

	sleep(ctx, r.Cfg.StartupDelayDuration)

	// The launcher may replace the pane during startup, so the creation
	// response alone is not trusted. Re-query by window name, falling
	// back to the created window index; only both missing fails the
	// operation.
	var pane *model.Pane
	err = retry(ctx, provisionVerifyAttempts, r.Cfg.RetryDelayDuration, func() (bool, error) {
		panes, lerr := r.Mux.ListPanes(ctx)
		if lerr != nil {
			return false, lerr
		}
		if pane = findPane(panes, created); pane != nil {
			return false, nil
		}
		r.Metrics.RecordRetry(ctx, "provision-verify")
		return false, fail(model.ReasonProvisionFailed, nil,
			"created window %q not found in pane table", r.Cfg.WindowName)
	})
	if err != nil {
		r.Metrics.RecordProvision(ctx, "failed")
		return nil, fail(model.ReasonProvisionFailed, err, "verifying new assistant window")
	}

	r.Metrics.RecordProvision(ctx, "ok")
	return &model.Candidate{
		Pane:           *pane,
		Method:         model.MethodNewlyCreated,
		CurrentSession: pane.Session == r.Mux.CurrentSession(ctx),
	}, nil
}

// findPane locates the created pane in a fresh table: first by exact
// pane id, then by session + window name, then by session + window
// index.
func findPane(panes []model.Pane, created model.Pane) *model.Pane {
	for i := range panes {
		if panes[i].ID == created.ID {
			return &panes[i]
		}
	}
	for i := range panes {
		if panes[i].Session == created.Session && panes[i].WindowName == created.WindowName {
			return &panes[i]
		}
	}
	for i := range panes {
		if panes[i].Session == created.Session && panes[i].WindowIndex == created.WindowIndex {
			return &panes[i]
		}
	}
	return nil
}
