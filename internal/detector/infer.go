package detector

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/kdduha/detection-api/internal/models"
)

// Infer runs m on img and translates its predictions into Detections.
// Model output order is kept. Boxes are rounded and clamped to the image;
// boxes that collapse to zero width or height are dropped.
func Infer(ctx context.Context, m Model, img image.Image) ([]models.Detection, error) {
	preds, err := m.Predict(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("%s prediction failed: %w", m.Name(), err)
	}

	labels := m.Labels()
	bounds := img.Bounds()

	detections := make([]models.Detection, 0, len(preds))
	for _, p := range preds {
		bbox, ok := toBBox(p.Box, bounds)
		if !ok {
			continue
		}
		detections = append(detections, models.Detection{
			Label:      labelFor(labels, p.Class),
			Confidence: clamp(p.Score, 0, 1),
			BBox:       bbox,
		})
	}
	return detections, nil
}

func labelFor(labels []string, class int) string {
	if class >= 0 && class < len(labels) && labels[class] != "" {
		return labels[class]
	}
	return fmt.Sprintf("class_%d", class)
}

func toBBox(box [4]float64, bounds image.Rectangle) ([4]int, bool) {
	minX, maxX := float64(bounds.Min.X), float64(bounds.Max.X)
	minY, maxY := float64(bounds.Min.Y), float64(bounds.Max.Y)

	x1 := int(math.Round(clamp(box[0], minX, maxX)))
	y1 := int(math.Round(clamp(box[1], minY, maxY)))
	x2 := int(math.Round(clamp(box[2], minX, maxX)))
	y2 := int(math.Round(clamp(box[3], minY, maxY)))
	if x1 >= x2 || y1 >= y2 {
		return [4]int{}, false
	}
	return [4]int{x1, y1, x2, y2}, true
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
