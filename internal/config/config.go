package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultSignatureName is the signature served when none is configured.
	DefaultSignatureName = "serving_default"
)

// defaultTags are the SavedModel tags loaded when none are configured.
var defaultTags = []string{"serve"}

// ModelConfig is the model configuration.
type ModelConfig struct {
	// Dir is the directory where the model artifact is stored.
	Dir string `yaml:"dir"`
	// ArchiveKey is the object-store key of the packaged model archive.
	ArchiveKey string `yaml:"archiveKey"`

	// SignatureName is the name of the served signature. Defaults to
	// "serving_default".
	SignatureName string `yaml:"signatureName"`
	// Tags are the SavedModel tags. Defaults to ["serve"].
	Tags []string `yaml:"tags"`

	// OpLibraries are the file names of the custom operator libraries that
	// must be loaded before the model. Loading fails if any of them is
	// missing from the model directory.
	OpLibraries []string `yaml:"opLibraries"`
	// AutoLoadOpLibraries also loads every shared library found under the
	// "assets.extra" directory of the model.
	AutoLoadOpLibraries bool `yaml:"autoLoadOpLibraries"`
}

func (c *ModelConfig) validate() error {
	if c.Dir == "" {
		return fmt.Errorf("dir must be set")
	}
	return nil
}

// SignatureNameOrDefault returns the configured signature name or the default.
func (c *ModelConfig) SignatureNameOrDefault() string {
	if c.SignatureName != "" {
		return c.SignatureName
	}
	return DefaultSignatureName
}

// TagsOrDefault returns the configured SavedModel tags or the default.
func (c *ModelConfig) TagsOrDefault() []string {
	if len(c.Tags) > 0 {
		return c.Tags
	}
	return defaultTags
}

// S3Config is the S3 configuration.
type S3Config struct {
	EndpointURL string `yaml:"endpointUrl"`
	Region      string `yaml:"region"`
	Bucket      string `yaml:"bucket"`
}

// ObjectStoreConfig is the object store configuration.
type ObjectStoreConfig struct {
	S3 S3Config `yaml:"s3"`
}

// Validate validates the object store configuration.
func (c *ObjectStoreConfig) Validate() error {
	if c.S3.Region == "" {
		return fmt.Errorf("s3 region must be set")
	}
	if c.S3.Bucket == "" {
		return fmt.Errorf("s3 bucket must be set")
	}
	return nil
}

// DebugConfig is the debug configuration.
type DebugConfig struct {
	// Standalone is true if the predictor runs without an object store. The
	// model directory must already be populated.
	Standalone bool `yaml:"standalone"`
}

// Config is the configuration.
type Config struct {
	HTTPPort    int `yaml:"httpPort"`
	MetricsPort int `yaml:"metricsPort"`
	HealthPort  int `yaml:"healthPort"`

	Model ModelConfig `yaml:"model"`

	ObjectStore ObjectStoreConfig `yaml:"objectStore"`

	Debug DebugConfig `yaml:"debug"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 {
		return fmt.Errorf("httpPort must be greater than 0")
	}
	if err := c.Model.validate(); err != nil {
		return fmt.Errorf("model: %s", err)
	}

	if !c.Debug.Standalone {
		if c.Model.ArchiveKey == "" {
			return fmt.Errorf("model archive key must be set")
		}
		if err := c.ObjectStore.Validate(); err != nil {
			return fmt.Errorf("object store: %s", err)
		}
	}

	return nil
}

// Parse parses the configuration file at the given path, returning a new
// Config struct.
func Parse(path string) (Config, error) {
	var config Config

	b, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("config: read: %s", err)
	}

	if err = yaml.Unmarshal(b, &config); err != nil {
		return config, fmt.Errorf("config: unmarshal: %s", err)
	}
	return config, nil
}
