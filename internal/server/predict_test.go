package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/jjedele/gcp-ai-tf-custom-op-predictor/internal/predictor"
	"github.com/stretchr/testify/assert"
)

func TestCreatePrediction(t *testing.T) {
	p := &fakePredictor{
		predict: func(instances []predictor.Instance) ([]predictor.Prediction, error) {
			preds := make([]predictor.Prediction, len(instances))
			for i, instance := range instances {
				preds[i] = predictor.Prediction{
					"score": float64(len(instance["text"].(string))),
				}
			}
			return preds, nil
		},
	}
	mm := &fakeMetricsMonitor{}
	srv := New(p, "serving_default", mm, testr.New(t))

	body := `{"instances": [{"text": "hello"}, {"text": "hi"}]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/predict", strings.NewReader(body))
	srv.CreatePrediction(w, req, nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp predictResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.Len(t, resp.Predictions, 2)
	assert.Equal(t, float64(5), resp.Predictions[0]["score"])
	assert.Equal(t, float64(2), resp.Predictions[1]["score"])
	assert.Equal(t, 2, mm.numInstances)
}

func TestCreatePredictionMalformedBody(t *testing.T) {
	srv := New(&fakePredictor{}, "serving_default", &fakeMetricsMonitor{}, testr.New(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/predict", strings.NewReader("not json"))
	srv.CreatePrediction(w, req, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreatePredictionNoInstances(t *testing.T) {
	srv := New(&fakePredictor{}, "serving_default", &fakeMetricsMonitor{}, testr.New(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/predict", strings.NewReader(`{"instances": []}`))
	srv.CreatePrediction(w, req, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreatePredictionModelError(t *testing.T) {
	p := &fakePredictor{
		predict: func(instances []predictor.Instance) ([]predictor.Prediction, error) {
			return nil, fmt.Errorf("input shape mismatch")
		},
	}
	srv := New(p, "serving_default", &fakeMetricsMonitor{}, testr.New(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/predict", strings.NewReader(`{"instances": [{"x": 1}]}`))
	srv.CreatePrediction(w, req, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "input shape mismatch")
}

type fakePredictor struct {
	predict func(instances []predictor.Instance) ([]predictor.Prediction, error)
}

func (p *fakePredictor) Predict(ctx context.Context, instances []predictor.Instance) ([]predictor.Prediction, error) {
	return p.predict(instances)
}

type fakeMetricsMonitor struct {
	numInstances int
}

func (m *fakeMetricsMonitor) ObservePredictLatency(signature string, latency time.Duration) {
}

func (m *fakeMetricsMonitor) AddInstances(signature string, n int) {
	m.numInstances += n
}
