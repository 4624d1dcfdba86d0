package predictor

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	tf "github.com/wamuir/graft/tensorflow"
)

// tfModel runs a SavedModel signature through the TensorFlow runtime.
type tfModel struct {
	sm *tf.SavedModel

	// inputs maps signature input keys to graph outputs to feed.
	inputs map[string]signatureTensor
	// outputs are the graph outputs to fetch, ordered by signature key.
	outputs []signatureTensor

	logger logr.Logger
}

type signatureTensor struct {
	key    string
	dtype  tf.DataType
	output tf.Output
}

func loadSavedModel(modelDir, signatureName string, tags []string, logger logr.Logger) (*tfModel, error) {
	sm, err := tf.LoadSavedModel(modelDir, tags, nil)
	if err != nil {
		return nil, err
	}

	sig, ok := sm.Signatures[signatureName]
	if !ok {
		return nil, fmt.Errorf("signature %q not found in the model at %q", signatureName, modelDir)
	}

	inputs := make(map[string]signatureTensor, len(sig.Inputs))
	for key, ti := range sig.Inputs {
		out, err := graphOutput(sm.Graph, ti.Name)
		if err != nil {
			return nil, err
		}
		inputs[key] = signatureTensor{key: key, dtype: ti.DType, output: out}
	}

	keys := make([]string, 0, len(sig.Outputs))
	for key := range sig.Outputs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	outputs := make([]signatureTensor, 0, len(keys))
	for _, key := range keys {
		ti := sig.Outputs[key]
		out, err := graphOutput(sm.Graph, ti.Name)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, signatureTensor{key: key, dtype: ti.DType, output: out})
	}

	logger.Info("Loaded the model", "dir", modelDir, "signature", signatureName, "inputs", len(inputs), "outputs", len(outputs))

	return &tfModel{
		sm:      sm,
		inputs:  inputs,
		outputs: outputs,
		logger:  logger.WithName("savedmodel"),
	}, nil
}

// Run feeds the columnar batch to the signature and fetches each output as a
// column of per-instance rows. Errors from the TensorFlow runtime are
// returned as-is.
func (m *tfModel) Run(ctx context.Context, feeds map[string][]any) (map[string][]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	feedTensors := make(map[tf.Output]*tf.Tensor, len(m.inputs))
	for key, st := range m.inputs {
		col, ok := feeds[key]
		if !ok {
			return nil, fmt.Errorf("missing input %q", key)
		}
		v, err := columnValue(st.dtype, col)
		if err != nil {
			return nil, fmt.Errorf("input %q: %s", key, err)
		}
		t, err := tf.NewTensor(v)
		if err != nil {
			return nil, fmt.Errorf("input %q: %s", key, err)
		}
		feedTensors[st.output] = t
	}

	fetches := make([]tf.Output, len(m.outputs))
	for i, st := range m.outputs {
		fetches[i] = st.output
	}

	results, err := m.sm.Session.Run(feedTensors, fetches, nil)
	if err != nil {
		return nil, err
	}

	outputs := make(map[string][]any, len(m.outputs))
	for i, st := range m.outputs {
		rows, err := tensorRows(results[i].Value())
		if err != nil {
			return nil, fmt.Errorf("output %q: %s", st.key, err)
		}
		outputs[st.key] = rows
	}
	return outputs, nil
}

// Close closes the session held by the SavedModel.
func (m *tfModel) Close() error {
	return m.sm.Session.Close()
}

// graphOutput resolves a tensor name of the form "op_name:index" to the
// corresponding graph output.
func graphOutput(g *tf.Graph, name string) (tf.Output, error) {
	opName := name
	index := 0
	if i := strings.LastIndex(name, ":"); i >= 0 {
		var err error
		index, err = strconv.Atoi(name[i+1:])
		if err != nil {
			return tf.Output{}, fmt.Errorf("invalid tensor name %q", name)
		}
		opName = name[:i]
	}
	op := g.Operation(opName)
	if op == nil {
		return tf.Output{}, fmt.Errorf("operation %q not found in the graph", opName)
	}
	return op.Output(index), nil
}
