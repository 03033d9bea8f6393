package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"live-quiz-service/internal/app"
)

// NewRouter mounts the WebSocket endpoint, the JSON API, metrics and a health check.
func NewRouter(service *app.GameService, hub *Hub, gatherer prometheus.Gatherer, log logrus.FieldLogger) http.Handler {
	ws := NewWSHandler(service, hub, log)
	api := NewAPIHandler(service, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ws.ServeWS)
	mux.HandleFunc("POST /sessions", api.CreateSession)
	mux.HandleFunc("GET /sessions/{id}", api.GetSession)
	mux.HandleFunc("GET /sessions/{id}/leaderboard", api.GetLeaderboard)
	mux.HandleFunc("GET /codes/{code}", api.GetByCode)
	mux.HandleFunc("POST /codes/{code}/players", api.JoinByCode)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
