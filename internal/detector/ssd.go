package detector

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// SSDOutput holds the four output tensors of a TFLite_Detection_PostProcess op.
type SSDOutput struct {
	// Boxes is [N*4] normalized ymin, xmin, ymax, xmax.
	Boxes   []float32
	Classes []float32
	Scores  []float32
	Count   int
}

// DecodeSSD scales normalized SSD boxes to a width x height image and drops
// entries scoring below threshold. Tensor order is kept. A negative count
// yields no predictions.
func DecodeSSD(out SSDOutput, width, height int, threshold float64) []Prediction {
	n := max(0, min(out.Count, len(out.Scores), len(out.Classes), len(out.Boxes)/4))

	preds := make([]Prediction, 0, n)
	for i := range n {
		score := float64(out.Scores[i])
		if score < threshold {
			continue
		}
		ymin, xmin := float64(out.Boxes[i*4]), float64(out.Boxes[i*4+1])
		ymax, xmax := float64(out.Boxes[i*4+2]), float64(out.Boxes[i*4+3])
		preds = append(preds, Prediction{
			Class: int(out.Classes[i]),
			Score: score,
			Box: [4]float64{
				xmin * float64(width),
				ymin * float64(height),
				xmax * float64(width),
				ymax * float64(height),
			},
		})
	}
	return preds
}

// ReadLabels reads a labels file, one label per line, index = line number.
// A "???" placeholder line keeps its index but is returned empty.
func ReadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()
	return parseLabels(f)
}

func parseLabels(r io.Reader) ([]string, error) {
	var labels []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "???" {
			line = ""
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	// trailing blank lines are not classes
	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file is empty")
	}
	return labels, nil
}
