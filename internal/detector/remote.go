package detector

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/disintegration/imaging"
)

// RemoteBackend talks to an external inference server that owns the models.
type RemoteBackend struct {
	baseURL string
	client  *http.Client
}

func NewRemoteBackend(baseURL string, timeout time.Duration) *RemoteBackend {
	return &RemoteBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type remoteModelInfo struct {
	Name  string            `json:"name"`
	Names map[string]string `json:"names"`
}

type remoteBox struct {
	Cls  int       `json:"cls"`
	Conf float64   `json:"conf"`
	XYXY []float64 `json:"xyxy"`
}

type remotePrediction struct {
	Boxes []remoteBox `json:"boxes"`
}

// Load fetches the class table of name from the server and returns a handle bound to it.
func (b *RemoteBackend) Load(ctx context.Context, name ModelName) (Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/models/"+url.PathEscape(string(name)), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", ErrBackendUnavailable, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: load %s failed with status: %d", ErrBackendUnavailable, name, resp.StatusCode)
	}

	var info remoteModelInfo
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode model info: %w", err)
	}

	labels, err := labelTable(info.Names)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", name, err)
	}

	return &remoteModel{
		name:    name,
		labels:  labels,
		backend: b,
	}, nil
}

// CheckHealth probes the inference server.
func (b *RemoteBackend) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ml service unhealthy: %d", resp.StatusCode)
	}
	return nil
}

type remoteModel struct {
	name    ModelName
	labels  []string
	backend *RemoteBackend
}

func (m *remoteModel) Name() ModelName  { return m.name }
func (m *remoteModel) Labels() []string { return m.labels }
func (m *remoteModel) Close() error     { return nil }

// Predict sends img as JPEG to the server and returns its boxes in server order.
func (m *remoteModel) Predict(ctx context.Context, img image.Image) ([]Prediction, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if err := imaging.Encode(part, img, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	endpoint := m.backend.baseURL + "/predict?model=" + url.QueryEscape(string(m.name))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := m.backend.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("inference failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result remotePrediction
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	preds := make([]Prediction, 0, len(result.Boxes))
	for i, box := range result.Boxes {
		if len(box.XYXY) != 4 {
			return nil, fmt.Errorf("box %d: expected 4 coordinates, got %d", i, len(box.XYXY))
		}
		preds = append(preds, Prediction{
			Class: box.Cls,
			Score: box.Conf,
			Box:   [4]float64{box.XYXY[0], box.XYXY[1], box.XYXY[2], box.XYXY[3]},
		})
	}
	return preds, nil
}

// labelTable turns {"0": "person", "1": "bicycle"} into a dense slice.
func labelTable(names map[string]string) ([]string, error) {
	maxIdx := -1
	byIdx := make(map[int]string, len(names))
	for k, v := range names {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("invalid class index %q", k)
		}
		byIdx[idx] = v
		maxIdx = max(maxIdx, idx)
	}

	labels := make([]string, maxIdx+1)
	for idx, v := range byIdx {
		labels[idx] = v
	}
	return labels, nil
}
