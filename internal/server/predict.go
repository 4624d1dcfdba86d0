package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jjedele/gcp-ai-tf-custom-op-predictor/internal/predictor"
)

type predictRequest struct {
	Instances []predictor.Instance `json:"instances"`
}

type predictResponse struct {
	Predictions []predictor.Prediction `json:"predictions"`
}

// CreatePrediction makes predictions for a batch of instances.
func (s *S) CreatePrediction(
	w http.ResponseWriter,
	req *http.Request,
	pathParams map[string]string,
) {
	var createReq predictRequest

	reqBody, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := json.Unmarshal(reqBody, &createReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if len(createReq.Instances) == 0 {
		http.Error(w, "Instances are required", http.StatusBadRequest)
		return
	}

	s.logger.Info("Making predictions", "instances", len(createReq.Instances))

	start := time.Now()
	predictions, err := s.predictor.Predict(req.Context(), createReq.Instances)
	if err != nil {
		// Errors from the model runtime are passed through unmodified.
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.metricsMonitor.ObservePredictLatency(s.signatureName, time.Since(start))
	s.metricsMonitor.AddInstances(s.signatureName, len(createReq.Instances))

	b, err := json.Marshal(&predictResponse{
		Predictions: predictions,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := io.Copy(w, bytes.NewBuffer(b)); err != nil {
		http.Error(w, fmt.Sprintf("Server error: %s", err), http.StatusInternalServerError)
		return
	}
}
