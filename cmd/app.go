package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kdduha/detection-api/internal/config"
	"github.com/kdduha/detection-api/internal/detector"
	"github.com/kdduha/detection-api/internal/detector/tflite"
	"github.com/kdduha/detection-api/internal/metrics"
	"github.com/kdduha/detection-api/internal/registry"
	"github.com/kdduha/detection-api/internal/service"
	"github.com/kdduha/detection-api/internal/storage"
)

// app is the wired object graph shared by serve and detect.
type app struct {
	registry *registry.Registry
	store    *storage.FileStore
	service  *service.DetectService
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, model string) (*app, error) {
	loader, err := newLoader(ctx, cfg.Detector, logger)
	if err != nil {
		return nil, err
	}

	reg, err := registry.New(ctx, logger, loader, model)
	if err != nil {
		return nil, err
	}
	supported := make([]string, 0, len(detector.SupportedModels()))
	for _, m := range detector.SupportedModels() {
		supported = append(supported, string(m))
	}
	metrics.SetCurrentModel(string(reg.Current().Name()), supported)
	reg.OnSwap(func(name detector.ModelName) {
		metrics.SetCurrentModel(string(name), supported)
	})

	store, err := storage.NewFileStore(cfg.Storage.Dir)
	if err != nil {
		_ = reg.Close()
		return nil, err
	}

	return &app{
		registry: reg,
		store:    store,
		service:  service.NewDetectService(logger, reg, store),
	}, nil
}

func (a *app) Close() error {
	regErr := a.registry.Close()
	storeErr := a.store.Close()
	if regErr != nil {
		return regErr
	}
	return storeErr
}

func newLoader(ctx context.Context, cfg config.DetectorConfig, logger *slog.Logger) (detector.Loader, error) {
	switch cfg.Backend {
	case config.BackendRemote:
		backend := detector.NewRemoteBackend(cfg.URL, cfg.Timeout)
		if err := backend.CheckHealth(ctx); err != nil {
			logger.Warn("detector backend is not healthy yet", slog.String("url", cfg.URL), slog.Any("error", err))
		}
		return backend.Load, nil
	case config.BackendTFLite:
		return tflite.NewBackend(cfg.ModelsDir, cfg.Threads, cfg.ScoreThreshold, logger).Load, nil
	default:
		return nil, fmt.Errorf("unsupported detector backend {%s}", cfg.Backend)
	}
}
