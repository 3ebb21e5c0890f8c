package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 2*time.Minute, cfg.Server.Timeout)
	assert.Equal(t, int64(50<<20), cfg.Server.MaxUploadBytes())
	assert.Equal(t, BackendRemote, cfg.Detector.Backend)
	assert.Equal(t, "yolov8n", cfg.Detector.DefaultModel)
	assert.Equal(t, "annotated", cfg.Storage.Dir)
	assert.InDelta(t, 0.25, cfg.Detector.ScoreThreshold, 1e-9)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("DETECTOR_BACKEND", "tflite")
	t.Setenv("DETECTOR_TIMEOUT", "5s")
	t.Setenv("STORAGE_DIR", "/tmp/artifacts")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, BackendTFLite, cfg.Detector.Backend)
	assert.Equal(t, 5*time.Second, cfg.Detector.Timeout)
	assert.Equal(t, "/tmp/artifacts", cfg.Storage.Dir)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown backend", "DETECTOR_BACKEND", "onnx"},
		{"threshold above one", "DETECTOR_SCORE_THRESHOLD", "1.5"},
		{"zero upload size", "SERVER_MAX_UPLOAD_MB", "0"},
		{"zero throttle limit", "SERVER_THROTTLE_LIMIT", "0"},
		{"negative throttle limit", "SERVER_THROTTLE_LIMIT", "-3"},
		{"malformed duration", "SERVER_TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
