package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/matchvault/backend/internal/reconcile"
	"github.com/matchvault/backend/internal/worker"
)

// tickResponse is returned to the invoker; EventBridge ignores it but manual invokes show it.
type tickResponse struct {
	Pending   bool              `json:"pending"`
	SessionID string            `json:"session_id,omitempty"`
	Outcome   reconcile.Outcome `json:"outcome,omitempty"`
	Error     string            `json:"error,omitempty"`
}

type handler struct {
	ticker worker.BacklogTicker
	runs   worker.RunRecorder
	logger *zap.Logger
}

func newHandler(ticker worker.BacklogTicker, runs worker.RunRecorder, logger *zap.Logger) *handler {
	return &handler{ticker: ticker, runs: runs, logger: logger}
}

// handle advances the backlog by one session per scheduled event. Only fatal errors fail the
// invocation; a per-session error is reported in the response and retried on the next tick.
func (h *handler) handle(ctx context.Context, event events.CloudWatchEvent) (tickResponse, error) {
	log := h.logger.With(zap.String("event_id", event.ID), zap.String("source", event.Source))
	sum, err := h.ticker.RunNext(ctx)
	if h.runs != nil {
		h.runs.ObserveRun("lambda", err)
	}
	if err != nil {
		log.Error("scheduled sync failed", zap.Error(err))
		return tickResponse{}, err
	}
	if len(sum.Results) == 0 {
		log.Info("nothing pending")
		return tickResponse{}, nil
	}
	res := sum.Results[0]
	log.Info("sync tick finished", zap.String("session_id", res.SessionID), zap.String("outcome", string(res.Outcome)))
	return tickResponse{Pending: true, SessionID: res.SessionID, Outcome: res.Outcome, Error: res.Error}, nil
}
