package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"mime"
	"time"

	"github.com/disintegration/imaging"

	"github.com/kdduha/detection-api/internal/annotate"
	"github.com/kdduha/detection-api/internal/detector"
	"github.com/kdduha/detection-api/internal/metrics"
	"github.com/kdduha/detection-api/internal/models"
)

var (
	ErrInvalidFormat = errors.New("invalid image format")
	ErrInvalidImage  = errors.New("invalid image data")
	ErrNoFiles       = errors.New("no files uploaded")
)

type ModelSource interface {
	Current() detector.Model
}

type ArtifactStore interface {
	SaveImage(ctx context.Context, original string, img image.Image) (string, error)
	Bundle(ctx context.Context, names []string) (string, error)
}

// Upload is one file of a multipart request.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type DetectService struct {
	logger *slog.Logger
	models ModelSource
	store  ArtifactStore
}

func NewDetectService(logger *slog.Logger, models ModelSource, store ArtifactStore) *DetectService {
	return &DetectService{
		logger: logger,
		models: models,
		store:  store,
	}
}

// Detect runs the current model on every upload and returns results in upload order.
func (s *DetectService) Detect(ctx context.Context, uploads []Upload) ([]models.DetectionResult, error) {
	images, err := s.prepare(uploads, endpointDetect)
	if err != nil {
		return nil, err
	}

	m := s.models.Current()
	results := make([]models.DetectionResult, 0, len(uploads))
	for i, img := range images {
		var dets []models.Detection
		dets, m, err = s.infer(ctx, m, uploads[i].Filename, img)
		if err != nil {
			return nil, err
		}
		results = append(results, models.DetectionResult{
			Filename:   uploads[i].Filename,
			Detections: dets,
		})
	}
	return results, nil
}

// DetectAnnotated additionally stores an annotated PNG per upload and bundles
// all of them into one zip whose download URL is shared by the batch.
func (s *DetectService) DetectAnnotated(ctx context.Context, uploads []Upload) (*models.AnnotatedResponse, error) {
	images, err := s.prepare(uploads, endpointAnnotated)
	if err != nil {
		return nil, err
	}

	m := s.models.Current()
	results := make([]models.DetectionResult, 0, len(uploads))
	names := make([]string, 0, len(uploads))
	for i, img := range images {
		var dets []models.Detection
		dets, m, err = s.infer(ctx, m, uploads[i].Filename, img)
		if err != nil {
			return nil, err
		}

		name, err := s.store.SaveImage(ctx, uploads[i].Filename, annotate.Draw(img, dets))
		if err != nil {
			metrics.ArtifactsWritten(metrics.ArtifactImage, metrics.StatusError)
			return nil, fmt.Errorf("store annotated image: %w", err)
		}
		metrics.ArtifactsWritten(metrics.ArtifactImage, metrics.StatusOK)
		s.logger.Debug("annotated image stored", slog.String("file", uploads[i].Filename), slog.String("artifact", name))

		names = append(names, name)
		results = append(results, models.DetectionResult{
			Filename:      uploads[i].Filename,
			Detections:    dets,
			AnnotatedFile: name,
		})
	}

	bundle, err := s.store.Bundle(ctx, names)
	if err != nil {
		metrics.ArtifactsWritten(metrics.ArtifactBundle, metrics.StatusError)
		return nil, fmt.Errorf("bundle annotated images: %w", err)
	}
	metrics.ArtifactsWritten(metrics.ArtifactBundle, metrics.StatusOK)
	s.logger.Info("annotated bundle stored", slog.String("artifact", bundle), slog.Int("files", len(names)))

	return &models.AnnotatedResponse{
		Results:     results,
		DownloadURL: DownloadPath(bundle),
	}, nil
}

// DownloadPath is the URL path serving a stored artifact.
func DownloadPath(name string) string {
	return "/download/" + name
}

// prepare validates the whole batch, then decodes it. Nothing is inferred or
// stored unless every upload passes.
func (s *DetectService) prepare(uploads []Upload, endpoint string) ([]image.Image, error) {
	if len(uploads) == 0 {
		return nil, ErrNoFiles
	}

	for _, u := range uploads {
		if err := validateContentType(u); err != nil {
			metrics.UploadBatches(endpoint, metrics.StatusRejected)
			s.logger.Warn("upload rejected", slog.String("file", u.Filename), slog.String("content_type", u.ContentType))
			return nil, err
		}
	}

	images := make([]image.Image, 0, len(uploads))
	for _, u := range uploads {
		img, err := imaging.Decode(bytes.NewReader(u.Data), imaging.AutoOrientation(true))
		if err != nil {
			metrics.UploadBatches(endpoint, metrics.StatusRejected)
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidImage, u.Filename, err)
		}
		images = append(images, img)
	}

	metrics.UploadBatches(endpoint, metrics.StatusOK)
	return images, nil
}

// infer retries once on the registry's current model when m was closed by a
// concurrent switch, and returns the model that produced the detections.
func (s *DetectService) infer(ctx context.Context, m detector.Model, filename string, img image.Image) ([]models.Detection, detector.Model, error) {
	start := time.Now()
	dets, err := detector.Infer(ctx, m, img)
	if errors.Is(err, detector.ErrModelClosed) {
		s.logger.Debug("model closed during request, retrying on current model", slog.String("model", string(m.Name())))
		m = s.models.Current()
		start = time.Now()
		dets, err = detector.Infer(ctx, m, img)
	}

	model := string(m.Name())
	if err != nil {
		metrics.InferenceDuration(model, metrics.StatusError, time.Since(start))
		s.logger.Error("inference failed", slog.String("file", filename), slog.String("model", model), slog.Any("error", err))
		return nil, m, err
	}
	metrics.InferenceDuration(model, metrics.StatusOK, time.Since(start))
	metrics.Detections(model, dets)

	s.logger.Debug("inference done",
		slog.String("file", filename),
		slog.String("model", model),
		slog.Int("detections", len(dets)),
		slog.Duration("took", time.Since(start)))
	return dets, m, nil
}

func validateContentType(u Upload) error {
	mediaType, _, err := mime.ParseMediaType(u.ContentType)
	if err != nil {
		return fmt.Errorf("%w: %s has no valid content type. Use JPEG/PNG", ErrInvalidFormat, u.Filename)
	}
	switch mediaType {
	case MediaJPEG, MediaPNG:
		return nil
	default:
		return fmt.Errorf("%w: %s is %s. Use JPEG/PNG", ErrInvalidFormat, u.Filename, mediaType)
	}
}
