// internal/handler/project.go
package handler

import (
	"net/http"

	"github.com/taskflowhq/taskflow/internal/audit"
	"github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/model"
	"github.com/taskflowhq/taskflow/internal/service"
)

type ProjectHandler struct {
	projectService *service.ProjectService
	recorder       audit.Recorder
}

func NewProjectHandler(projectService *service.ProjectService, recorder audit.Recorder) *ProjectHandler {
	return &ProjectHandler{projectService: projectService, recorder: recorder}
}

type ProjectResponse struct {
	BaseResponse
	Project *model.Project `json:"project"`
}

type ProjectListResponse struct {
	BaseResponse
	Projects []*model.Project `json:"projects"`
}

func (h *ProjectHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	var input service.CreateProjectInput
	if err := decodeBody(r, &input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	project, err := h.projectService.Create(r.Context(), ac, input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), ac, model.AuditActionCreate, model.ResourceProject, &project.ID,
		map[string]interface{}{"name": project.Name}, r)

	respondWithJSON(w, http.StatusCreated, ProjectResponse{
		BaseResponse: BaseResponse{Ok: true},
		Project:      project,
	})
}

func (h *ProjectHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	id, err := uuidParam(r, "projectID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid project id")
		return
	}

	project, err := h.projectService.Get(r.Context(), ac, id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ProjectResponse{
		BaseResponse: BaseResponse{Ok: true},
		Project:      project,
	})
}

func (h *ProjectHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	projects, err := h.projectService.List(r.Context(), ac, r.URL.Query().Get("status"))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ProjectListResponse{
		BaseResponse: BaseResponse{Ok: true},
		Projects:     projects,
	})
}

func (h *ProjectHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	id, err := uuidParam(r, "projectID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid project id")
		return
	}

	var input service.UpdateProjectInput
	if err := decodeBody(r, &input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	project, err := h.projectService.Update(r.Context(), ac, id, input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), ac, model.AuditActionUpdate, model.ResourceProject, &project.ID,
		map[string]interface{}{"status": project.Status}, r)

	respondWithJSON(w, http.StatusOK, ProjectResponse{
		BaseResponse: BaseResponse{Ok: true},
		Project:      project,
	})
}

func (h *ProjectHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	id, err := uuidParam(r, "projectID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid project id")
		return
	}

	if err := h.projectService.Delete(r.Context(), ac, id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), ac, model.AuditActionDelete, model.ResourceProject, &id, nil, r)

	respondWithJSON(w, http.StatusOK, BaseResponse{Ok: true})
}
