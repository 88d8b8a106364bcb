package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/nimbu/pkg/httpserver"
	"github.com/dmitrymomot/nimbu/pkg/logger"
	"github.com/dmitrymomot/nimbu/pkg/queue"
)

type statsResponse struct {
	Ready    int  `json:"ready"`
	Delayed  int  `json:"delayed"`
	Capacity int  `json:"capacity"`
	Closed   bool `json:"closed"`
}

func newRouter(q *queue.TaskQueue, gatherer prometheus.Gatherer, log *slog.Logger) chi.Router {
	r := httpserver.NewOpsRouter(log, gatherer, func(context.Context) error {
		if q.Closed() {
			return queue.ErrClosed
		}
		return nil
	})
	r.Get("/stats", statsHandler(q, log))
	return r
}

func statsHandler(q *queue.TaskQueue, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(statsResponse{
			Ready:    q.Len(),
			Delayed:  q.Delayed(),
			Capacity: q.Capacity(),
			Closed:   q.Closed(),
		})
		if err != nil {
			log.ErrorContext(r.Context(), "failed to write stats", logger.Error(err))
		}
	}
}
