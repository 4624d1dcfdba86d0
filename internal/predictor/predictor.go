// Package predictor wraps a TensorFlow SavedModel whose graph depends on
// custom operator kernels. Construction installs the operator libraries into
// the process before the model is loaded; prediction converts the platform's
// record-oriented payload to the columnar feed the model expects and back.
package predictor

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-logr/logr"
	"github.com/jjedele/gcp-ai-tf-custom-op-predictor/internal/oplib"
)

// Instance is a single prediction input in record format.
type Instance map[string]any

// Prediction is a single prediction output in record format.
type Prediction map[string]any

// model runs the serving signature on a columnar feed.
type model interface {
	Run(ctx context.Context, feeds map[string][]any) (map[string][]any, error)
	Close() error
}

// Options configure how the model is loaded.
type Options struct {
	// SignatureName is the name of the served signature.
	SignatureName string
	// Tags are the SavedModel tags to load.
	Tags []string
	// OpLibraries are the file names of the operator libraries that must be
	// present in the model directory.
	OpLibraries []string
	// AutoLoadOpLibraries also loads every shared library found under
	// "assets.extra".
	AutoLoadOpLibraries bool
}

// FromPath creates a predictor from the model at the given directory. The
// custom operator libraries are loaded first so that their kernels are
// registered by the time the graph is imported.
func FromPath(modelDir string, opts Options, logger logr.Logger) (*P, error) {
	loader := oplib.New(logger)
	if err := loader.Load(modelDir, opts.OpLibraries, opts.AutoLoadOpLibraries); err != nil {
		return nil, err
	}

	m, err := loadSavedModel(modelDir, opts.SignatureName, opts.Tags, logger)
	if err != nil {
		return nil, err
	}
	return newP(m, logger), nil
}

func newP(m model, logger logr.Logger) *P {
	return &P{
		model:  m,
		logger: logger.WithName("predictor"),
	}
}

// P is a predictor.
type P struct {
	model  model
	logger logr.Logger
}

// Predict makes predictions for the given batch of instances. The i-th
// prediction corresponds to the i-th instance.
func (p *P) Predict(ctx context.Context, instances []Instance) ([]Prediction, error) {
	if len(instances) == 0 {
		return nil, fmt.Errorf("no instances")
	}

	feeds := toColumnar(instances)
	outputs, err := p.model.Run(ctx, feeds)
	if err != nil {
		return nil, err
	}
	return toRecords(outputs)
}

// IsReady implements the readiness probe.
func (p *P) IsReady() (bool, string) {
	if p.model == nil {
		return false, "model is not loaded"
	}
	return true, ""
}

// Close releases the resources held by the underlying model.
func (p *P) Close() error {
	return p.model.Close()
}

// toColumnar converts a batch of instances from record format to columnar
// format, e.g. [{"k": "v1"}, {"k": "v2"}] to {"k": ["v1", "v2"]}. The keys
// are the union over all instances; an instance missing a key contributes a
// nil value.
func toColumnar(instances []Instance) map[string][]any {
	keySet := map[string]bool{}
	for _, instance := range instances {
		for key := range instance {
			keySet[key] = true
		}
	}
	keys := make([]string, 0, len(keySet))
	for key := range keySet {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	columns := make(map[string][]any, len(keys))
	for _, key := range keys {
		col := make([]any, len(instances))
		for i, instance := range instances {
			col[i] = instance[key]
		}
		columns[key] = col
	}
	return columns
}

// toRecords converts model outputs from columnar format back to record
// format, e.g. {"k": ["v1", "v2"]} to [{"k": "v1"}, {"k": "v2"}].
func toRecords(outputs map[string][]any) ([]Prediction, error) {
	n := -1
	for key, col := range outputs {
		if n < 0 {
			n = len(col)
			continue
		}
		if len(col) != n {
			return nil, fmt.Errorf("output %q has %d rows, expected %d", key, len(col), n)
		}
	}
	if n < 0 {
		n = 0
	}

	records := make([]Prediction, n)
	for i := range records {
		record := make(Prediction, len(outputs))
		for key, col := range outputs {
			record[key] = col[i]
		}
		records[i] = record
	}
	return records, nil
}
