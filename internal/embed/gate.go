// Package embed implements the public widget surface: token-less rendering
// of org tasks inside third-party pages, gated by a per-widget domain
// allow list.
package embed

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskflowhq/taskflow/internal/domain"
	"github.com/taskflowhq/taskflow/internal/model"
	"github.com/taskflowhq/taskflow/internal/repository"
)

const widgetTaskLimit = 50

// RequestInfo carries the embedding page's identity headers. Browsers send
// Referer on iframe navigation and Origin on cross-origin POSTs; either is
// accepted, Referer first.
type RequestInfo struct {
	Referer string
	Origin  string
}

// ViewResult is everything the embed page needs to render.
type ViewResult struct {
	Widget *model.EmbedWidget
	Tasks  []*model.Task
	// FrameAncestors is the Content-Security-Policy frame-ancestors value
	// for the response. Restricts which pages may frame the widget.
	FrameAncestors string
}

// Gate resolves widget views and completion toggles for unauthenticated
// embed traffic.
type Gate struct {
	widgets repository.EmbedRepositoryIface
	tasks   repository.TaskRepositoryIface
}

func NewGate(widgets repository.EmbedRepositoryIface, tasks repository.TaskRepositoryIface) *Gate {
	return &Gate{widgets: widgets, tasks: tasks}
}

// Resolve loads the widget, enforces the domain allow list, and returns the
// tasks to render. Missing, deactivated and expired widgets are
// indistinguishable from the outside: all three return ErrWidgetNotFound.
// A denied domain returns ErrEmbedDomainDenied and leaves no access log;
// only permitted views are recorded.
func (g *Gate) Resolve(ctx context.Context, widgetID uuid.UUID, req RequestInfo) (*ViewResult, error) {
	widget, err := g.authorize(ctx, widgetID, req)
	if err != nil {
		if widget != nil {
			// The CSP directive is computed from the allow list alone, so a
			// denied response still tells the browser who may frame the
			// widget.
			return &ViewResult{FrameAncestors: frameAncestors(widget.AllowedDomains)}, err
		}
		return nil, err
	}

	g.log(ctx, widget.ID, model.EmbedActionView, req)

	tasks, err := g.widgetTasks(ctx, widget)
	if err != nil {
		return nil, err
	}

	return &ViewResult{
		Widget:         widget,
		Tasks:          tasks,
		FrameAncestors: frameAncestors(widget.AllowedDomains),
	}, nil
}

// ToggleTask flips a task's completion state from the embed surface. Beyond
// the domain gate the widget must carry OPERATIONS_ALLOWED, and the task
// must belong to the widget's org.
func (g *Gate) ToggleTask(ctx context.Context, widgetID, taskID uuid.UUID, req RequestInfo) (*model.Task, error) {
	widget, err := g.authorize(ctx, widgetID, req)
	if err != nil {
		return nil, err
	}
	if widget.Permissions != model.PermOperationsAllowed {
		return nil, fmt.Errorf("%w: widget is view-only", domain.ErrForbidden)
	}

	task, err := g.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.OrgID != widget.OrgID {
		// Cross-org task IDs are not distinguishable from absent ones.
		return nil, domain.ErrTaskNotFound
	}

	if task.Status == model.TaskCompleted {
		task.Status = model.TaskTodo
		task.CompletedAt = nil
	} else {
		now := time.Now()
		task.Status = model.TaskCompleted
		task.CompletedAt = &now
	}
	if err := g.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	g.log(ctx, widget.ID, "TOGGLE_TASK", req)
	return task, nil
}

// authorize performs the shared widget lookup, liveness and domain checks.
func (g *Gate) authorize(ctx context.Context, widgetID uuid.UUID, req RequestInfo) (*model.EmbedWidget, error) {
	widget, err := g.widgets.FindByID(ctx, widgetID)
	if err != nil {
		return nil, err
	}
	if !widget.IsActive {
		return nil, domain.ErrWidgetNotFound
	}
	if widget.TokenExpiresAt != nil && widget.TokenExpiresAt.Before(time.Now()) {
		return nil, domain.ErrWidgetNotFound
	}

	// The referer check only applies when the owner configured an allow
	// list; without one the CSP frame-ancestors 'self' directive is the
	// only restriction.
	if len(widget.AllowedDomains) > 0 {
		host := requestHost(req)
		if !domainAllowed(widget.AllowedDomains, host) {
			return widget, domain.ErrEmbedDomainDenied
		}
	}
	return widget, nil
}

func (g *Gate) widgetTasks(ctx context.Context, widget *model.EmbedWidget) ([]*model.Task, error) {
	switch widget.TargetType {
	case model.TargetProject:
		return g.tasks.ListForWidget(ctx, widget.OrgID, widget.TargetID, widgetTaskLimit)
	case model.TargetMyTasks:
		return g.tasks.ListForWidget(ctx, widget.OrgID, nil, widgetTaskLimit)
	case model.TargetSavedFilter:
		return nil, domain.ErrSavedFilterUnsupported
	default:
		return nil, fmt.Errorf("%w: unknown target type %q", domain.ErrInvalidInput, widget.TargetType)
	}
}

// log appends an access record. Failures are logged and swallowed; the view
// itself never fails because the audit write did.
func (g *Gate) log(ctx context.Context, widgetID uuid.UUID, action string, req RequestInfo) {
	entry := &model.EmbedLog{
		WidgetID: widgetID,
		Action:   action,
		Metadata: model.JSONMap{
			"referer": req.Referer,
			"host":    requestHost(req),
		},
	}
	if err := g.widgets.CreateLog(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "failed to record embed access",
			slog.String("widget_id", widgetID.String()), slog.Any("error", err))
	}
}

// requestHost extracts the embedding page's hostname, preferring Referer
// over Origin. Unparseable or absent headers yield "", which never matches
// an allow list: the gate fails closed.
func requestHost(req RequestInfo) string {
	for _, raw := range []string{req.Referer, req.Origin} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			continue
		}
		return u.Hostname()
	}
	return ""
}

// domainAllowed checks the host against the allow list. Entries are exact
// hostnames or wildcards of the form "*.example.com", which match the bare
// domain and any subdomain.
func domainAllowed(allowed []string, host string) bool {
	if host == "" {
		return false
	}
	for _, entry := range allowed {
		if suffix, ok := strings.CutPrefix(entry, "*."); ok {
			if host == suffix || strings.HasSuffix(host, "."+suffix) {
				return true
			}
			continue
		}
		if host == entry {
			return true
		}
	}
	return false
}

// frameAncestors builds the CSP frame-ancestors directive value. Widgets
// without an allow list may only be framed by the app itself.
func frameAncestors(allowed []string) string {
	if len(allowed) == 0 {
		return "'self'"
	}
	return strings.Join(allowed, " ")
}
