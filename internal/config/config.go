package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BackendRemote = "remote"
	BackendTFLite = "tflite"
)

type Config struct {
	Server   ServerConfig
	Detector DetectorConfig
	Storage  StorageConfig
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

type ServerConfig struct {
	Port            string        `env:"SERVER_PORT" envDefault:"8080"`
	Timeout         time.Duration `env:"SERVER_TIMEOUT" envDefault:"2m"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	ThrottleLimit   int           `env:"SERVER_THROTTLE_LIMIT" envDefault:"50"`
	MaxUploadMB     int64         `env:"SERVER_MAX_UPLOAD_MB" envDefault:"50"`
}

type DetectorConfig struct {
	Backend        string        `env:"DETECTOR_BACKEND" envDefault:"remote"`
	DefaultModel   string        `env:"DETECTOR_DEFAULT_MODEL" envDefault:"yolov8n"`
	URL            string        `env:"DETECTOR_URL" envDefault:"http://localhost:5000"`
	Timeout        time.Duration `env:"DETECTOR_TIMEOUT" envDefault:"30s"`
	ModelsDir      string        `env:"DETECTOR_MODELS_DIR" envDefault:"./models"`
	Threads        int           `env:"DETECTOR_THREADS" envDefault:"0"`
	ScoreThreshold float64       `env:"DETECTOR_SCORE_THRESHOLD" envDefault:"0.25"`
}

type StorageConfig struct {
	Dir string `env:"STORAGE_DIR" envDefault:"annotated"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MaxUploadBytes is the multipart memory limit used when parsing upload forms.
func (s ServerConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}

func (c *Config) validate() error {
	switch c.Detector.Backend {
	case BackendRemote, BackendTFLite:
	default:
		return fmt.Errorf("unsupported detector backend {%s}", c.Detector.Backend)
	}
	if c.Detector.ScoreThreshold < 0 || c.Detector.ScoreThreshold > 1 {
		return fmt.Errorf("detector score threshold must be in [0,1], got %v", c.Detector.ScoreThreshold)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("max upload size must be positive, got %d", c.Server.MaxUploadMB)
	}
	if c.Server.ThrottleLimit <= 0 {
		return fmt.Errorf("throttle limit must be positive, got %d", c.Server.ThrottleLimit)
	}
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage dir is empty")
	}
	return nil
}
