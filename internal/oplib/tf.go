package oplib

import (
	tf "github.com/wamuir/graft/tensorflow"
)

// loadTFLibrary registers the operator library at path with the TensorFlow
// runtime. Errors are returned as the runtime reports them.
func loadTFLibrary(path string) error {
	_, err := tf.LoadLibrary(path)
	return err
}
