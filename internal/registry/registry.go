// Package registry holds the process-wide current detection model.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/kdduha/detection-api/internal/detector"
)

// Registry is a single synchronized model slot. Reads are lock free;
// concurrent switches resolve last-writer-wins.
type Registry struct {
	logger  *slog.Logger
	load    detector.Loader
	current atomic.Pointer[slot]

	// swapMu orders a swap together with its onSwap call.
	swapMu sync.Mutex
	onSwap func(detector.ModelName)
}

// slot lets atomic.Pointer hold an interface value.
type slot struct {
	model detector.Model
}

// New loads the initial model and returns a registry serving it.
func New(ctx context.Context, logger *slog.Logger, load detector.Loader, initial string) (*Registry, error) {
	r := &Registry{
		logger: logger,
		load:   load,
	}
	m, err := r.Load(ctx, initial)
	if err != nil {
		return nil, fmt.Errorf("load initial model: %w", err)
	}
	r.current.Store(&slot{model: m})
	return r, nil
}

// OnSwap registers a callback invoked after every successful switch.
// It must be set before the registry is shared.
func (r *Registry) OnSwap(fn func(detector.ModelName)) {
	r.onSwap = fn
}

// Load resolves name and loads it without touching the current slot.
func (r *Registry) Load(ctx context.Context, name string) (detector.Model, error) {
	modelName, err := detector.ParseModelName(name)
	if err != nil {
		return nil, err
	}
	m, err := r.load(ctx, modelName)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", modelName, err)
	}
	return m, nil
}

// Switch replaces the current model with name. On any error the current
// model stays in place. The previous handle is closed after the swap.
func (r *Registry) Switch(ctx context.Context, name string) (detector.ModelName, error) {
	m, err := r.Load(ctx, name)
	if err != nil {
		r.logger.Warn("model switch rejected", slog.String("requested", name), slog.Any("error", err))
		return "", err
	}

	r.swapMu.Lock()
	prev := r.current.Swap(&slot{model: m})
	if r.onSwap != nil {
		r.onSwap(m.Name())
	}
	r.swapMu.Unlock()

	r.logger.Info("model switched",
		slog.String("from", string(prev.model.Name())),
		slog.String("to", string(m.Name())))

	if err := prev.model.Close(); err != nil {
		r.logger.Error("close previous model", slog.String("model", string(prev.model.Name())), slog.Any("error", err))
	}
	return m.Name(), nil
}

// Current returns the active model.
func (r *Registry) Current() detector.Model {
	return r.current.Load().model
}

// Close releases the active model.
func (r *Registry) Close() error {
	return r.Current().Close()
}
