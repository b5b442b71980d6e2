// internal/handler/embed.go
package handler

import (
	"net/http"

	"github.com/taskflowhq/taskflow/internal/audit"
	"github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/model"
	"github.com/taskflowhq/taskflow/internal/service"
)

// EmbedHandler manages widgets from the authenticated API. The public embed
// surface lives in EmbedPublicHandler.
type EmbedHandler struct {
	widgetService *service.EmbedWidgetService
	recorder      audit.Recorder
}

func NewEmbedHandler(widgetService *service.EmbedWidgetService, recorder audit.Recorder) *EmbedHandler {
	return &EmbedHandler{widgetService: widgetService, recorder: recorder}
}

type WidgetResponse struct {
	BaseResponse
	Widget *model.EmbedWidget `json:"widget"`
}

type WidgetListResponse struct {
	BaseResponse
	Widgets []*model.EmbedWidget `json:"widgets"`
}

func (h *EmbedHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	var input service.CreateWidgetInput
	if err := decodeBody(r, &input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	widget, err := h.widgetService.Create(r.Context(), ac, input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), ac, model.AuditActionCreate, model.ResourceEmbed, &widget.ID,
		map[string]interface{}{"name": widget.Name, "permissions": widget.Permissions}, r)

	respondWithJSON(w, http.StatusCreated, WidgetResponse{
		BaseResponse: BaseResponse{Ok: true},
		Widget:       widget,
	})
}

func (h *EmbedHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	widgets, err := h.widgetService.List(r.Context(), ac)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, WidgetListResponse{
		BaseResponse: BaseResponse{Ok: true},
		Widgets:      widgets,
	})
}

func (h *EmbedHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	id, err := uuidParam(r, "widgetID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid widget id")
		return
	}

	widget, err := h.widgetService.Get(r.Context(), ac, id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, WidgetResponse{
		BaseResponse: BaseResponse{Ok: true},
		Widget:       widget,
	})
}
