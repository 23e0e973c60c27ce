package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

const ConfigFileName = "modelfetch.toml"

const (
	DefaultURL         = "https://media.roboflow.com/yolov8n.onnx"
	DefaultDestination = "public/yolov8n.onnx"
	DefaultChunkSize   = 8192
)

// FetchConfig holds everything a single fetch needs to know.
type FetchConfig struct {
	URL         string `toml:"url"`
	Destination string `toml:"destination"`
	ChunkSize   int    `toml:"chunk_size"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *FetchConfig {
	return &FetchConfig{
		URL:         DefaultURL,
		Destination: DefaultDestination,
		ChunkSize:   DefaultChunkSize,
	}
}

// LoadFetchConfig reads the TOML file at path on top of the defaults.
// Keys absent from the file keep their default values.
func LoadFetchConfig(path string) (*FetchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Validate checks that the configuration can drive a fetch.
func (c *FetchConfig) Validate() error {
	if c.URL == "" {
		return errors.New("url must not be empty")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", c.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url %q: scheme must be http or https", c.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid url %q: missing host", c.URL)
	}
	if c.Destination == "" {
		return errors.New("destination must not be empty")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	return nil
}
