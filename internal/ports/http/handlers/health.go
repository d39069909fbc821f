package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vinib1903/cineus-api/internal/ports/http/httputil"
)

// HealthHandler reports liveness and whether the durable store backing
// every room/video operation is actually reachable.
type HealthHandler struct {
	dbPool *pgxpool.Pool
}

// NewHealthHandler cria uma nova instância do handler.
func NewHealthHandler(dbPool *pgxpool.Pool) *HealthHandler {
	return &HealthHandler{dbPool: dbPool}
}

// HealthResponse é a resposta do health check.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Health retorna o status da aplicação. Reporta "degraded" (503) se o
// pool do Postgres não responder a um ping dentro de 2s — sem banco
// alcançável, CreateRoom/GetByCode/toda mutação falham de qualquer forma.
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.dbPool.Ping(ctx); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	httputil.JSON(w, code, HealthResponse{
		Status:  status,
		Version: "0.1.0",
	})
}
