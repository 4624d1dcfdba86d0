package oplib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	modelDir := t.TempDir()
	writeFile(t, filepath.Join(modelDir, assetsExtraDir, "_tokenizer.so"))
	writeFile(t, filepath.Join(modelDir, assetsExtraDir, "_extra_ops.so"))

	l := New(testr.New(t))
	var loadedPaths []string
	l.loadFn = func(path string) error {
		loadedPaths = append(loadedPaths, filepath.Base(path))
		return nil
	}

	err := l.Load(modelDir, []string{"_tokenizer.so"}, true)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"_tokenizer.so", "_extra_ops.so"}, loadedPaths)
}

func TestLoadMissingRequiredLibrary(t *testing.T) {
	modelDir := t.TempDir()

	l := New(testr.New(t))
	l.loadFn = func(path string) error {
		t.Fatalf("unexpected load of %q", path)
		return nil
	}

	err := l.Load(modelDir, []string{"_tokenizer.so"}, false)
	assert.Error(t, err)
}

func TestLoadOnce(t *testing.T) {
	modelDir := t.TempDir()
	writeFile(t, filepath.Join(modelDir, "_tokenizer.so"))

	l := New(testr.New(t))
	var numLoads int
	l.loadFn = func(path string) error {
		numLoads++
		return nil
	}

	err := l.Load(modelDir, []string{"_tokenizer.so"}, false)
	assert.NoError(t, err)
	err = l.Load(modelDir, []string{"_tokenizer.so"}, false)
	assert.NoError(t, err)
	assert.Equal(t, 1, numLoads)
}

func writeFile(t *testing.T, path string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("lib"), 0644))
}
