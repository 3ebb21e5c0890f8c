package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdduha/detection-api/internal/detector"
	"github.com/kdduha/detection-api/internal/models"
	"github.com/kdduha/detection-api/internal/storage"
)

// widthModel answers based on the input width so tests can tell uploads apart.
type widthModel struct {
	name   detector.ModelName
	byW    map[int][]detector.Prediction
	closed atomic.Bool
	calls  atomic.Int32
}

func (m *widthModel) Name() detector.ModelName { return m.name }
func (m *widthModel) Labels() []string         { return []string{"person", "dog", "ball"} }
func (m *widthModel) Close() error {
	m.closed.Store(true)
	return nil
}
func (m *widthModel) Predict(_ context.Context, img image.Image) ([]detector.Prediction, error) {
	m.calls.Add(1)
	if m.closed.Load() {
		return nil, detector.ErrModelClosed
	}
	return m.byW[img.Bounds().Dx()], nil
}

type staticSource struct {
	models []detector.Model
	i      atomic.Int32
}

// Current returns the models in order, then keeps returning the last one.
func (s *staticSource) Current() detector.Model {
	i := int(s.i.Add(1)) - 1
	if i >= len(s.models) {
		i = len(s.models) - 1
	}
	return s.models[i]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solid(w, h), nil))
	return buf.Bytes()
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(w, h)))
	return buf.Bytes()
}

func solid(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
		}
	}
	return img
}

func newFixture(t *testing.T, m ...detector.Model) (*DetectService, *storage.FileStore) {
	t.Helper()
	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "annotated"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewDetectService(discardLogger(), &staticSource{models: m}, store), store
}

func dogBallModel() *widthModel {
	return &widthModel{
		name: detector.YOLOv8n,
		byW: map[int][]detector.Prediction{
			64: {{Class: 1, Score: 0.91, Box: [4]float64{10.4, 20.6, 50, 60}}},
			48: {{Class: 2, Score: 0.55, Box: [4]float64{5, 5, 25, 25}}},
		},
	}
}

func storedFiles(t *testing.T, store *storage.FileStore) []string {
	t.Helper()
	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestDetect_PreservesUploadOrder(t *testing.T) {
	svc, store := newFixture(t, dogBallModel())

	results, err := svc.Detect(context.Background(), []Upload{
		{Filename: "dog.jpg", ContentType: MediaJPEG, Data: encodeJPEG(t, 64, 64)},
		{Filename: "ball.png", ContentType: MediaPNG, Data: encodePNG(t, 48, 48)},
	})
	require.NoError(t, err)

	assert.Equal(t, []models.DetectionResult{
		{
			Filename:   "dog.jpg",
			Detections: []models.Detection{{Label: "dog", Confidence: 0.91, BBox: [4]int{10, 21, 50, 60}}},
		},
		{
			Filename:   "ball.png",
			Detections: []models.Detection{{Label: "ball", Confidence: 0.55, BBox: [4]int{5, 5, 25, 25}}},
		},
	}, results)
	assert.Empty(t, storedFiles(t, store))
}

func TestDetect_EmptyDetectionsIsEmptyList(t *testing.T) {
	svc, _ := newFixture(t, dogBallModel())

	results, err := svc.Detect(context.Background(), []Upload{
		{Filename: "empty.png", ContentType: MediaPNG, Data: encodePNG(t, 10, 10)},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotNil(t, results[0].Detections)
	assert.Empty(t, results[0].Detections)
}

func TestDetect_ContentTypeWithParams(t *testing.T) {
	svc, _ := newFixture(t, dogBallModel())

	_, err := svc.Detect(context.Background(), []Upload{
		{Filename: "dog.jpg", ContentType: "image/jpeg; charset=binary", Data: encodeJPEG(t, 64, 64)},
	})
	assert.NoError(t, err)
}

func TestDetect_RejectsBatchOnInvalidFormat(t *testing.T) {
	m := dogBallModel()
	svc, store := newFixture(t, m)

	_, err := svc.DetectAnnotated(context.Background(), []Upload{
		{Filename: "dog.jpg", ContentType: MediaJPEG, Data: encodeJPEG(t, 64, 64)},
		{Filename: "notes.txt", ContentType: "text/plain", Data: []byte("hello")},
	})
	require.ErrorIs(t, err, ErrInvalidFormat)
	assert.Contains(t, err.Error(), "notes.txt")

	assert.Zero(t, m.calls.Load())
	assert.Empty(t, storedFiles(t, store))
}

func TestDetect_MissingContentType(t *testing.T) {
	svc, _ := newFixture(t, dogBallModel())

	_, err := svc.Detect(context.Background(), []Upload{{Filename: "x", Data: []byte{1}}})
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestDetect_UndecodableImage(t *testing.T) {
	m := dogBallModel()
	svc, store := newFixture(t, m)

	_, err := svc.DetectAnnotated(context.Background(), []Upload{
		{Filename: "dog.jpg", ContentType: MediaJPEG, Data: encodeJPEG(t, 64, 64)},
		{Filename: "broken.png", ContentType: MediaPNG, Data: []byte("not a png")},
	})
	require.ErrorIs(t, err, ErrInvalidImage)
	assert.Zero(t, m.calls.Load())
	assert.Empty(t, storedFiles(t, store))
}

func TestDetect_NoFiles(t *testing.T) {
	svc, _ := newFixture(t, dogBallModel())

	_, err := svc.Detect(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestDetect_PredictionFailure(t *testing.T) {
	failing := &failingModel{err: errors.New("boom")}
	svc, _ := newFixture(t, failing)

	_, err := svc.Detect(context.Background(), []Upload{
		{Filename: "dog.jpg", ContentType: MediaJPEG, Data: encodeJPEG(t, 8, 8)},
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidFormat)
	assert.Contains(t, err.Error(), "boom")
}

type failingModel struct{ err error }

func (m *failingModel) Name() detector.ModelName { return detector.YOLOv8s }
func (m *failingModel) Labels() []string         { return nil }
func (m *failingModel) Close() error             { return nil }
func (m *failingModel) Predict(context.Context, image.Image) ([]detector.Prediction, error) {
	return nil, m.err
}

func TestDetect_RetriesOnClosedModel(t *testing.T) {
	old := dogBallModel()
	require.NoError(t, old.Close())
	current := dogBallModel()
	current.name = detector.YOLOv8s

	svc, _ := newFixture(t, old, current)

	results, err := svc.Detect(context.Background(), []Upload{
		{Filename: "dog.jpg", ContentType: MediaJPEG, Data: encodeJPEG(t, 64, 64)},
		{Filename: "ball.png", ContentType: MediaPNG, Data: encodePNG(t, 48, 48)},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "dog", results[0].Detections[0].Label)

	assert.Equal(t, int32(1), old.calls.Load())
	assert.Equal(t, int32(2), current.calls.Load())
}

func TestDetectAnnotated_StoresImagesAndBundle(t *testing.T) {
	svc, store := newFixture(t, dogBallModel())

	resp, err := svc.DetectAnnotated(context.Background(), []Upload{
		{Filename: "dog.jpg", ContentType: MediaJPEG, Data: encodeJPEG(t, 64, 64)},
		{Filename: "ball.png", ContentType: MediaPNG, Data: encodePNG(t, 48, 48)},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	assert.Regexp(t, `^/download/[0-9a-f]{32}_annotated\.zip$`, resp.DownloadURL)
	assert.Regexp(t, `^[0-9a-f]{32}_dog\.jpg\.png$`, resp.Results[0].AnnotatedFile)
	assert.Regexp(t, `^[0-9a-f]{32}_ball\.png\.png$`, resp.Results[1].AnnotatedFile)
	assert.Equal(t, "dog.jpg", resp.Results[0].Filename)
	assert.Equal(t, "ball.png", resp.Results[1].Filename)
	assert.Len(t, storedFiles(t, store), 3)

	bundle := resp.DownloadURL[len("/download/"):]
	zr, err := zip.OpenReader(filepath.Join(store.Dir(), bundle))
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 2)
	assert.Equal(t, resp.Results[0].AnnotatedFile, zr.File[0].Name)
	assert.Equal(t, resp.Results[1].AnnotatedFile, zr.File[1].Name)

	a, err := store.Open(resp.Results[0].AnnotatedFile)
	require.NoError(t, err)
	defer a.File.Close()
	img, err := png.Decode(a.File)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 64), img.Bounds())

	// the box border is drawn in red
	r, g, b, _ := img.At(30, 21).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0, 0}, [3]uint32{r, g, b})
}
