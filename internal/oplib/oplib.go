// Package oplib loads custom operator libraries required by a model. The
// libraries register their kernels with the TensorFlow runtime as a side
// effect of being loaded, so they must be installed before the model graph
// is loaded.
package oplib

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-logr/logr"
)

// assetsExtraDir is the SavedModel directory that carries side-loaded
// artifacts such as operator libraries.
const assetsExtraDir = "assets.extra"

// libraries are registered with the runtime process-wide. Loading the same
// library twice fails inside TensorFlow, so track what has been loaded.
var (
	mu     sync.Mutex
	loaded = map[string]bool{}
)

// New returns a new Loader.
func New(logger logr.Logger) *Loader {
	return &Loader{
		logger: logger.WithName("oplib"),
		loadFn: loadTFLibrary,
	}
}

// Loader loads custom operator libraries from a model directory.
type Loader struct {
	logger logr.Logger
	loadFn func(path string) error
}

// Load installs the named operator libraries from the model directory into
// the process. Every name in required must resolve to an existing file. If
// autoDiscover is set, every shared library found under "assets.extra" is
// loaded as well.
func (l *Loader) Load(modelDir string, required []string, autoDiscover bool) error {
	for _, name := range required {
		path, err := l.resolve(modelDir, name)
		if err != nil {
			return err
		}
		if err := l.loadOnce(path); err != nil {
			return err
		}
	}

	if !autoDiscover {
		return nil
	}

	paths, err := filepath.Glob(filepath.Join(modelDir, assetsExtraDir, "*.so"))
	if err != nil {
		return err
	}
	for _, path := range paths {
		if err := l.loadOnce(path); err != nil {
			return err
		}
	}
	return nil
}

// resolve finds the library file in the model directory, checking the
// directory itself and "assets.extra".
func (l *Loader) resolve(modelDir, name string) (string, error) {
	candidates := []string{
		filepath.Join(modelDir, name),
		filepath.Join(modelDir, assetsExtraDir, name),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !os.IsNotExist(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("custom operator library %q not found in %q", name, modelDir)
}

func (l *Loader) loadOnce(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if loaded[abs] {
		return nil
	}

	l.logger.Info("Loading custom operator library", "path", abs)
	if err := l.loadFn(abs); err != nil {
		return err
	}
	loaded[abs] = true
	return nil
}
