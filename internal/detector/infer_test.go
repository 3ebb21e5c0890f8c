package detector

import (
	"context"
	"errors"
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubModel struct {
	labels []string
	preds  []Prediction
	err    error
}

func (m *stubModel) Name() ModelName  { return YOLOv8n }
func (m *stubModel) Labels() []string { return m.labels }
func (m *stubModel) Close() error     { return nil }
func (m *stubModel) Predict(context.Context, image.Image) ([]Prediction, error) {
	return m.preds, m.err
}

func testImage(w, h int) image.Image {
	return image.NewNRGBA(image.Rect(0, 0, w, h))
}

func TestInfer_TranslatesPredictions(t *testing.T) {
	m := &stubModel{
		labels: []string{"person", "bicycle", "dog"},
		preds: []Prediction{
			{Class: 2, Score: 0.92, Box: [4]float64{100.4, 150.6, 199.5, 250.2}},
			{Class: 0, Score: 0.51, Box: [4]float64{10, 20, 30, 40}},
		},
	}

	dets, err := Infer(context.Background(), m, testImage(640, 480))
	require.NoError(t, err)
	require.Len(t, dets, 2)

	assert.Equal(t, "dog", dets[0].Label)
	assert.InDelta(t, 0.92, dets[0].Confidence, 1e-9)
	assert.Equal(t, [4]int{100, 151, 200, 250}, dets[0].BBox)

	// model order is kept even though the second box scores lower
	assert.Equal(t, "person", dets[1].Label)
	assert.Equal(t, [4]int{10, 20, 30, 40}, dets[1].BBox)
}

func TestInfer_EmptyIsNotError(t *testing.T) {
	dets, err := Infer(context.Background(), &stubModel{}, testImage(10, 10))
	require.NoError(t, err)
	require.NotNil(t, dets)
	assert.Empty(t, dets)
}

func TestInfer_UnknownClass(t *testing.T) {
	m := &stubModel{
		labels: []string{"person", ""},
		preds: []Prediction{
			{Class: 7, Score: 0.5, Box: [4]float64{0, 0, 5, 5}},
			{Class: 1, Score: 0.5, Box: [4]float64{0, 0, 5, 5}},
			{Class: -1, Score: 0.5, Box: [4]float64{0, 0, 5, 5}},
		},
	}

	dets, err := Infer(context.Background(), m, testImage(10, 10))
	require.NoError(t, err)
	require.Len(t, dets, 3)
	assert.Equal(t, "class_7", dets[0].Label)
	assert.Equal(t, "class_1", dets[1].Label)
	assert.Equal(t, "class_-1", dets[2].Label)
}

func TestInfer_ClampsAndDropsDegenerate(t *testing.T) {
	m := &stubModel{
		labels: []string{"cat"},
		preds: []Prediction{
			{Class: 0, Score: 1.3, Box: [4]float64{-20, -5, 120, 90}},
			{Class: 0, Score: 0.4, Box: [4]float64{50.2, 50, 50.4, 60}},
			{Class: 0, Score: -0.1, Box: [4]float64{30, 30, 20, 40}},
			{Class: 0, Score: math.NaN(), Box: [4]float64{1, 1, 9, 9}},
			{Class: 0, Score: 0.7, Box: [4]float64{200, 200, 300, 300}},
		},
	}

	dets, err := Infer(context.Background(), m, testImage(100, 80))
	require.NoError(t, err)
	require.Len(t, dets, 2)

	assert.Equal(t, [4]int{0, 0, 100, 80}, dets[0].BBox)
	assert.InDelta(t, 1.0, dets[0].Confidence, 1e-9)
	assert.Equal(t, [4]int{1, 1, 9, 9}, dets[1].BBox)
	assert.InDelta(t, 0.0, dets[1].Confidence, 1e-9)

	for _, d := range dets {
		assert.GreaterOrEqual(t, d.Confidence, 0.0)
		assert.LessOrEqual(t, d.Confidence, 1.0)
		assert.Less(t, d.BBox[0], d.BBox[2])
		assert.Less(t, d.BBox[1], d.BBox[3])
	}
}

func TestInfer_PropagatesModelError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Infer(context.Background(), &stubModel{err: boom}, testImage(10, 10))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "yolov8n")
}
