// Package health exposes a readiness probe endpoint for the serving
// platform's health checks.
package health

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-logr/logr"
)

type probe interface {
	IsReady() (bool, string)
}

// NewProbeHandler returns a new ProbeHandler.
func NewProbeHandler(logger logr.Logger) *ProbeHandler {
	return &ProbeHandler{
		logger: logger.WithName("health"),
	}
}

// ProbeHandler aggregates health probes.
type ProbeHandler struct {
	probes []probe
	logger logr.Logger
}

// AddProbe adds a health probe.
func (h *ProbeHandler) AddProbe(p probe) {
	h.probes = append(h.probes, p)
}

// ProbeHandler writes the result of the health probes. Any probe reporting
// not-ready makes the endpoint return 503 with the probe messages.
func (h *ProbeHandler) ProbeHandler(resp http.ResponseWriter, _ *http.Request) {
	var msgs []string

	for _, p := range h.probes {
		if r, msg := p.IsReady(); !r {
			msgs = append(msgs, msg)
		}
	}

	if len(msgs) > 0 {
		http.Error(resp, strings.Join(msgs, ","), http.StatusServiceUnavailable)
		return
	}

	if _, err := fmt.Fprint(resp, "ok"); err != nil {
		h.logger.Error(err, "Failed to write the health response")
	}
}
