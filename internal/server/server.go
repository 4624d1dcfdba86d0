// Package server exposes the predictor over the HTTP surface the serving
// platform dispatches requests to.
package server

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/jjedele/gcp-ai-tf-custom-op-predictor/internal/monitoring"
	"github.com/jjedele/gcp-ai-tf-custom-op-predictor/internal/predictor"
)

type modelPredictor interface {
	Predict(ctx context.Context, instances []predictor.Instance) ([]predictor.Prediction, error)
}

// New creates a server.
func New(
	p modelPredictor,
	signatureName string,
	metricsMonitor monitoring.MetricsMonitoring,
	logger logr.Logger,
) *S {
	return &S{
		predictor:      p,
		signatureName:  signatureName,
		metricsMonitor: metricsMonitor,
		logger:         logger.WithName("server"),
	}
}

// S is a server.
type S struct {
	predictor      modelPredictor
	signatureName  string
	metricsMonitor monitoring.MetricsMonitoring

	logger logr.Logger
}
