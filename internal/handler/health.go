// internal/handler/health.go
package handler

import (
	"net/http"

	"gorm.io/gorm"
)

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

type HealthResponse struct {
	BaseResponse
	Status   string `json:"status"`
	Database string `json:"database"`
}

func (h *HealthHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		BaseResponse: BaseResponse{Ok: true},
		Status:       "healthy",
		Database:     "ok",
	}

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		resp.Ok = false
		resp.Status = "degraded"
		resp.Database = "unreachable"
		respondWithJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}
