package health

import (
	"context"
	"net/http"
	"time"

	"eventtrail/internal/infrastructure/json"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var startTime = time.Now()

type Handler struct {
	client *mongo.Client
}

// NewHandler wires the health check. client may be nil in tests; the
// database probe is skipped in that case.
func NewHandler(client *mongo.Client) *Handler {
	return &Handler{
		client: client,
	}
}

// GetHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API, including database connectivity, uptime and current timestamp
// @Tags         health
// @Produce      json
// @Success      200 {object} healthResponse "Service is healthy"
// @Failure      503 {object} healthResponse "Service is unhealthy"
// @Router       /health [get]
// @Router       /healthz [get]
// @Router       /ready [get]
// @Router       /live [get]
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Database:  "connected",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(startTime).Round(time.Second).String(),
	}

	if h.client != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.client.Ping(ctx, readpref.Primary()); err != nil {
			resp.Status = "unhealthy"
			resp.Database = "disconnected"
			json.Write(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	json.Write(w, http.StatusOK, resp)
}
