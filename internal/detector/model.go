// Package detector defines the contract between the service and an external
// object-detection model, and the adapter that normalizes its output.
package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
)

// ModelName identifies one of the supported pre-trained models.
type ModelName string

const (
	YOLOv8n ModelName = "yolov8n"
	YOLOv8s ModelName = "yolov8s"
)

var aliases = map[string]ModelName{
	"small":    YOLOv8n,
	"standard": YOLOv8s,
}

var (
	ErrModelClosed        = errors.New("model handle is closed")
	ErrBackendUnavailable = errors.New("detector backend unavailable")
)

// InvalidModelNameError is returned when a name is outside the supported set.
type InvalidModelNameError struct {
	Name string
}

func (e *InvalidModelNameError) Error() string {
	return fmt.Sprintf("unsupported model %q. Use %s", e.Name, supportedList())
}

// SupportedModels returns the canonical model names in a stable order.
func SupportedModels() []ModelName {
	return []ModelName{YOLOv8n, YOLOv8s}
}

// ParseModelName maps a canonical name or alias to a ModelName.
func ParseModelName(name string) (ModelName, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, m := range SupportedModels() {
		if string(m) == n {
			return m, nil
		}
	}
	if m, ok := aliases[n]; ok {
		return m, nil
	}
	return "", &InvalidModelNameError{Name: name}
}

// Aliases returns alias -> canonical name pairs.
func Aliases() map[string]ModelName {
	out := make(map[string]ModelName, len(aliases))
	for k, v := range aliases {
		out[k] = v
	}
	return out
}

func supportedList() string {
	names := make([]string, 0, len(SupportedModels()))
	for _, m := range SupportedModels() {
		names = append(names, "'"+string(m)+"'")
	}
	return strings.Join(names, " or ")
}

// Prediction is the native output of a model for one box: class index,
// confidence and x1,y1,x2,y2 in pixel coordinates of the input image.
type Prediction struct {
	Class int
	Score float64
	Box   [4]float64
}

// Model is a loaded detection model.
type Model interface {
	Name() ModelName
	// Labels is the class-index to label table.
	Labels() []string
	Predict(ctx context.Context, img image.Image) ([]Prediction, error)
	Close() error
}

// Loader builds a Model for a supported name.
type Loader func(ctx context.Context, name ModelName) (Model, error)
