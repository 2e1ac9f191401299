package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"attrinfer/internal/predict"
	"attrinfer/internal/snapshot"
)

// Source selects where a run reads its snapshot from.
type Source string

const (
	SourceFiles Source = "files"
	SourceStore Source = "store"
)

type Config struct {
	Data struct {
		Source Source `yaml:"source"`
		// Dir is scanned with snapshot.Discover when Layout.Graph is empty.
		Dir    string          `yaml:"dir"`
		Layout snapshot.Layout `yaml:"layout"`
	} `yaml:"data"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	Inference predict.Options `yaml:"inference"`
	Output    struct {
		Predictions string `yaml:"predictions"` // directory for per-type JSON files
		Report      string `yaml:"report"`
	} `yaml:"output"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.Data.Source = SourceFiles
	cfg.Data.Dir = "data"
	cfg.Inference = predict.DefaultOptions()
	cfg.Inference.Parallel = true
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
	return cfg
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	// 2. Load YAML config on top of the defaults
	cfg := Default()
	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, err
		}
	}

	// 3. Override with Environment Variables if present
	if db := os.Getenv("ATTRINFER_DB"); db != "" {
		cfg.Store.Path = db
	}
	if dir := os.Getenv("ATTRINFER_DATA_DIR"); dir != "" {
		cfg.Data.Dir = dir
	}
	if level := os.Getenv("ATTRINFER_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if report := os.Getenv("ATTRINFER_REPORT"); report != "" {
		cfg.Output.Report = report
	}
	if v := os.Getenv("ATTRINFER_MAX_NEIGHBORHOOD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		cfg.Inference.MaxNeighborhood = n
	}

	return cfg, nil
}
