// Package tflite runs SSD-style TensorFlow Lite detection models in-process.
// Models must end in TFLite_Detection_PostProcess so that NMS happens inside
// the graph; this package only feeds pixels and reads the four output tensors.
package tflite

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/tphakala/go-tflite"

	"github.com/kdduha/detection-api/internal/detector"
)

type Backend struct {
	dir       string
	threads   int
	threshold float64
	logger    *slog.Logger
}

func NewBackend(dir string, threads int, threshold float64, logger *slog.Logger) *Backend {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	return &Backend{
		dir:       dir,
		threads:   threads,
		threshold: threshold,
		logger:    logger,
	}
}

// Load reads <dir>/<name>.tflite and <dir>/<name>.labels.
func (b *Backend) Load(ctx context.Context, name detector.ModelName) (detector.Model, error) {
	modelPath := filepath.Join(b.dir, string(name)+".tflite")
	labelsPath := filepath.Join(b.dir, string(name)+".labels")

	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: model file: %v", detector.ErrBackendUnavailable, err)
	}
	labels, err := detector.ReadLabels(labelsPath)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", name, err)
	}

	model := tflite.NewModelFromFile(modelPath)
	if model == nil {
		return nil, fmt.Errorf("cannot load TensorFlow Lite model %s", modelPath)
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(b.threads)
	options.SetErrorReporter(func(msg string, _ any) {
		b.logger.Error("tflite error", slog.String("model", string(name)), slog.String("message", msg))
	}, nil)

	interp := tflite.NewInterpreter(model, options)
	if interp == nil {
		options.Delete()
		model.Delete()
		return nil, fmt.Errorf("cannot create interpreter for %s", name)
	}
	if status := interp.AllocateTensors(); status != tflite.OK {
		interp.Delete()
		options.Delete()
		model.Delete()
		return nil, fmt.Errorf("tensor allocation failed for %s", name)
	}

	m := &ssdModel{
		name:      name,
		labels:    labels,
		threshold: b.threshold,
		model:     model,
		options:   options,
		interp:    interp,
	}
	if err := m.checkShapes(); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("model %s: %w", name, err)
	}

	b.logger.Info("tflite model loaded",
		slog.String("model", string(name)),
		slog.Int("input_width", m.inputW),
		slog.Int("input_height", m.inputH),
		slog.Int("labels", len(labels)),
		slog.Int("threads", b.threads))
	return m, nil
}

// ssdModel serializes access to its interpreter, which is not goroutine safe.
type ssdModel struct {
	mu        sync.Mutex
	closed    bool
	name      detector.ModelName
	labels    []string
	threshold float64

	model   *tflite.Model
	options *tflite.InterpreterOptions
	interp  *tflite.Interpreter

	inputW, inputH int
	inputType      tflite.TensorType
}

func (m *ssdModel) Name() detector.ModelName { return m.name }
func (m *ssdModel) Labels() []string         { return m.labels }

func (m *ssdModel) checkShapes() error {
	input := m.interp.GetInputTensor(0)
	if input == nil {
		return fmt.Errorf("cannot get input tensor")
	}
	if input.NumDims() != 4 || input.Dim(3) != 3 {
		return fmt.Errorf("expected [1,H,W,3] input, got %d dims", input.NumDims())
	}
	m.inputH, m.inputW = input.Dim(1), input.Dim(2)
	m.inputType = input.Type()
	if m.inputType != tflite.UInt8 && m.inputType != tflite.Float32 {
		return fmt.Errorf("unsupported input tensor type %v", m.inputType)
	}
	if n := m.interp.GetOutputTensorCount(); n < 4 {
		return fmt.Errorf("expected 4 output tensors (boxes, classes, scores, count), got %d", n)
	}
	return nil
}

func (m *ssdModel) Predict(ctx context.Context, img image.Image) ([]detector.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, detector.ErrModelClosed
	}

	resized := imaging.Resize(img, m.inputW, m.inputH, imaging.Linear)
	input := m.interp.GetInputTensor(0)
	switch m.inputType {
	case tflite.UInt8:
		fillUint8(input.UInt8s(), resized)
	case tflite.Float32:
		fillFloat32(input.Float32s(), resized)
	}

	if status := m.interp.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("tensor invoke failed: %v", status)
	}

	out := detector.SSDOutput{
		Boxes:   copyFloats(m.interp.GetOutputTensor(0)),
		Classes: copyFloats(m.interp.GetOutputTensor(1)),
		Scores:  copyFloats(m.interp.GetOutputTensor(2)),
	}
	if count := copyFloats(m.interp.GetOutputTensor(3)); len(count) > 0 && count[0] > 0 {
		out.Count = int(count[0])
	}

	bounds := img.Bounds()
	preds := detector.DecodeSSD(out, bounds.Dx(), bounds.Dy(), m.threshold)
	for i := range preds {
		preds[i].Box[0] += float64(bounds.Min.X)
		preds[i].Box[1] += float64(bounds.Min.Y)
		preds[i].Box[2] += float64(bounds.Min.X)
		preds[i].Box[3] += float64(bounds.Min.Y)
	}
	return preds, nil
}

// Close waits for a running prediction and releases the interpreter.
func (m *ssdModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.interp.Delete()
	m.options.Delete()
	m.model.Delete()
	return nil
}

func fillUint8(dst []uint8, img *image.NRGBA) {
	i := 0
	for y := 0; y < img.Rect.Dy(); y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < img.Rect.Dx() && i+2 < len(dst); x++ {
			dst[i], dst[i+1], dst[i+2] = row[x*4], row[x*4+1], row[x*4+2]
			i += 3
		}
	}
}

func fillFloat32(dst []float32, img *image.NRGBA) {
	i := 0
	for y := 0; y < img.Rect.Dy(); y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < img.Rect.Dx() && i+2 < len(dst); x++ {
			dst[i] = float32(row[x*4]) / 255
			dst[i+1] = float32(row[x*4+1]) / 255
			dst[i+2] = float32(row[x*4+2]) / 255
			i += 3
		}
	}
}

func copyFloats(t *tflite.Tensor) []float32 {
	if t == nil {
		return nil
	}
	src := t.Float32s()
	out := make([]float32, len(src))
	copy(out, src)
	return out
}
