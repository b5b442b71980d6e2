// internal/handler/embed_public.go
package handler

import (
	"errors"
	"net/http"

	"github.com/taskflowhq/taskflow/internal/domain"
	"github.com/taskflowhq/taskflow/internal/embed"
	"github.com/taskflowhq/taskflow/internal/model"
)

// EmbedPublicHandler serves the unauthenticated widget surface. Requests
// carry no session; the widget id plus the embedding page's domain are the
// whole credential.
type EmbedPublicHandler struct {
	gate *embed.Gate
}

func NewEmbedPublicHandler(gate *embed.Gate) *EmbedPublicHandler {
	return &EmbedPublicHandler{gate: gate}
}

type EmbedViewResponse struct {
	BaseResponse
	Widget *embedWidgetView `json:"widget"`
	Tasks  []*model.Task    `json:"tasks"`
}

// embedWidgetView is the reduced widget shape exposed to embed traffic. The
// token and the allow list never leave the server on this surface.
type embedWidgetView struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	ViewMode    model.EmbedViewMode    `json:"view_mode"`
	Permissions model.EmbedPermissions `json:"permissions"`
	CanEdit     bool                   `json:"can_edit"`
}

// ViewHandler renders widget data for an embedding page. Denied domains get
// a 403 with no body details; missing, inactive and expired widgets are all
// plain 404s.
func (h *EmbedPublicHandler) ViewHandler(w http.ResponseWriter, r *http.Request) {
	widgetID, err := uuidParam(r, "widgetID")
	if err != nil {
		setFrameAncestors(w, nil)
		respondWithError(w, http.StatusNotFound, "Widget not found")
		return
	}

	view, err := h.gate.Resolve(r.Context(), widgetID, requestInfo(r))
	setFrameAncestors(w, view)
	if err != nil {
		h.respondGateError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, EmbedViewResponse{
		BaseResponse: BaseResponse{Ok: true},
		Widget: &embedWidgetView{
			ID:          view.Widget.ID.String(),
			Name:        view.Widget.Name,
			ViewMode:    view.Widget.ViewMode,
			Permissions: view.Widget.Permissions,
			CanEdit:     view.Widget.Permissions == model.PermOperationsAllowed,
		},
		Tasks: view.Tasks,
	})
}

// ToggleTaskHandler flips task completion from an OPERATIONS_ALLOWED widget.
func (h *EmbedPublicHandler) ToggleTaskHandler(w http.ResponseWriter, r *http.Request) {
	widgetID, err := uuidParam(r, "widgetID")
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Widget not found")
		return
	}
	taskID, err := uuidParam(r, "taskID")
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Task not found")
		return
	}

	task, err := h.gate.ToggleTask(r.Context(), widgetID, taskID, requestInfo(r))
	if err != nil {
		h.respondGateError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, TaskResponse{
		BaseResponse: BaseResponse{Ok: true},
		Task:         task,
	})
}

func (h *EmbedPublicHandler) respondGateError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrWidgetNotFound):
		respondWithError(w, http.StatusNotFound, "Widget not found")
	case errors.Is(err, domain.ErrEmbedDomainDenied):
		respondWithError(w, http.StatusForbidden, "Access denied")
	default:
		respondWithServiceError(w, r, err)
	}
}

// setFrameAncestors emits the CSP directive on every widget response,
// denials included. Unknown widgets fall back to 'self'.
func setFrameAncestors(w http.ResponseWriter, view *embed.ViewResult) {
	ancestors := "'self'"
	if view != nil && view.FrameAncestors != "" {
		ancestors = view.FrameAncestors
	}
	w.Header().Set("Content-Security-Policy", "frame-ancestors "+ancestors)
}

func requestInfo(r *http.Request) embed.RequestInfo {
	return embed.RequestInfo{
		Referer: r.Header.Get("Referer"),
		Origin:  r.Header.Get("Origin"),
	}
}
