// internal/handler/task.go
package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/taskflowhq/taskflow/internal/audit"
	"github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/model"
	"github.com/taskflowhq/taskflow/internal/service"
)

type TaskHandler struct {
	taskService *service.TaskService
	recorder    audit.Recorder
}

func NewTaskHandler(taskService *service.TaskService, recorder audit.Recorder) *TaskHandler {
	return &TaskHandler{taskService: taskService, recorder: recorder}
}

type TaskResponse struct {
	BaseResponse
	Task *model.Task `json:"task"`
}

type TaskListResponse struct {
	BaseResponse
	Tasks []*model.Task `json:"tasks"`
	Total int64         `json:"total"`
}

func (h *TaskHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	var input service.CreateTaskInput
	if err := decodeBody(r, &input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	task, err := h.taskService.Create(r.Context(), ac, input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), ac, model.AuditActionCreate, model.ResourceTask, &task.ID,
		map[string]interface{}{"title": task.Title}, r)

	respondWithJSON(w, http.StatusCreated, TaskResponse{
		BaseResponse: BaseResponse{Ok: true},
		Task:         task,
	})
}

func (h *TaskHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	id, err := uuidParam(r, "taskID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid task id")
		return
	}

	task, err := h.taskService.Get(r.Context(), ac, id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, TaskResponse{
		BaseResponse: BaseResponse{Ok: true},
		Task:         task,
	})
}

func (h *TaskHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	input := service.ListTasksInput{
		Status: r.URL.Query().Get("status"),
	}
	if raw := r.URL.Query().Get("project_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid project id")
			return
		}
		input.ProjectID = &id
	}
	if raw := r.URL.Query().Get("assignee_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid assignee id")
			return
		}
		input.AssigneeID = &id
	}
	input.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	input.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	tasks, total, err := h.taskService.List(r.Context(), ac, input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, TaskListResponse{
		BaseResponse: BaseResponse{Ok: true},
		Tasks:        tasks,
		Total:        total,
	})
}

func (h *TaskHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	id, err := uuidParam(r, "taskID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid task id")
		return
	}

	var input service.UpdateTaskInput
	if err := decodeBody(r, &input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	task, err := h.taskService.Update(r.Context(), ac, id, input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), ac, model.AuditActionUpdate, model.ResourceTask, &task.ID,
		map[string]interface{}{"status": task.Status}, r)

	respondWithJSON(w, http.StatusOK, TaskResponse{
		BaseResponse: BaseResponse{Ok: true},
		Task:         task,
	})
}

func (h *TaskHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	id, err := uuidParam(r, "taskID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid task id")
		return
	}

	if err := h.taskService.Delete(r.Context(), ac, id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	h.recorder.Record(r.Context(), ac, model.AuditActionDelete, model.ResourceTask, &id, nil, r)

	respondWithJSON(w, http.StatusOK, BaseResponse{Ok: true})
}
