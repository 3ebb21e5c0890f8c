package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"

	"github.com/kdduha/detection-api/internal/detector"
	"github.com/kdduha/detection-api/internal/metrics"
	"github.com/kdduha/detection-api/internal/models"
	"github.com/kdduha/detection-api/internal/service"
	"github.com/kdduha/detection-api/internal/storage"
)

const uploadField = "files"

type detectService interface {
	Detect(ctx context.Context, uploads []service.Upload) ([]models.DetectionResult, error)
	DetectAnnotated(ctx context.Context, uploads []service.Upload) (*models.AnnotatedResponse, error)
}

type modelRegistry interface {
	Switch(ctx context.Context, name string) (detector.ModelName, error)
	Current() detector.Model
}

type artifactStore interface {
	Open(name string) (*storage.Artifact, error)
}

type DetectHandler struct {
	service        detectService
	registry       modelRegistry
	store          artifactStore
	maxUploadBytes int64
}

func NewDetectHandler(service detectService, registry modelRegistry, store artifactStore, maxUploadBytes int64) *DetectHandler {
	return &DetectHandler{
		service:        service,
		registry:       registry,
		store:          store,
		maxUploadBytes: maxUploadBytes,
	}
}

// Detect godoc
// @Summary Detect objects
// @Description Run the current model on one or more JPEG/PNG images. Results keep upload order.
// @Tags detect
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Images (image/jpeg or image/png), repeatable"
// @Success 200 {object} models.DetectResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /detect [post]
func (h *DetectHandler) Detect(w http.ResponseWriter, r *http.Request) {
	uploads, err := h.readUploads(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.service.Detect(r.Context(), uploads)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.DetectResponse{Results: results})
}

// DetectAnnotated godoc
// @Summary Detect objects and render annotated images
// @Description Same as /detect, additionally stores an annotated PNG per image and a zip of all of them.
// @Tags detect
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Images (image/jpeg or image/png), repeatable"
// @Success 200 {object} models.AnnotatedResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /detect/annotated [post]
func (h *DetectHandler) DetectAnnotated(w http.ResponseWriter, r *http.Request) {
	uploads, err := h.readUploads(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.DetectAnnotated(r.Context(), uploads)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Download godoc
// @Summary Download a stored artifact
// @Description Serve an annotated PNG or zip bundle by its exact stored name.
// @Tags files
// @Produce octet-stream
// @Param filename path string true "Stored file name"
// @Success 200 {file} file
// @Failure 404 {object} models.ErrorResponse
// @Router /download/{filename} [get]
func (h *DetectHandler) Download(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.Open(chi.URLParam(r, "filename"))
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidName):
		writeError(w, http.StatusNotFound, "File not found")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer a.File.Close()

	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Name))
	http.ServeContent(w, r, a.Name, a.ModTime, a.File)
}

// SwitchModel godoc
// @Summary Switch the active model
// @Description Load the named model and make it current for subsequent requests. Aliases: small, standard.
// @Tags models
// @Produce json
// @Param model_name path string true "Model name" Enums(yolov8n, yolov8s)
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /switch-model/{model_name} [post]
func (h *DetectHandler) SwitchModel(w http.ResponseWriter, r *http.Request) {
	name, err := h.registry.Switch(r.Context(), chi.URLParam(r, "model_name"))
	if err != nil {
		metrics.ModelSwitch(metrics.StatusRejected)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.ModelSwitch(metrics.StatusOK)
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Model switched to " + string(name)})
}

// Models godoc
// @Summary List models
// @Tags models
// @Produce json
// @Success 200 {object} models.ModelsResponse
// @Router /models [get]
func (h *DetectHandler) Models(w http.ResponseWriter, _ *http.Request) {
	supported := make([]string, 0, len(detector.SupportedModels()))
	for _, m := range detector.SupportedModels() {
		supported = append(supported, string(m))
	}
	writeJSON(w, http.StatusOK, models.ModelsResponse{
		Current:   string(h.registry.Current().Name()),
		Supported: supported,
	})
}

// Health godoc
// @Summary Liveness probe
// @Tags system
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /health [get]
func (h *DetectHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status: "ok",
		Model:  string(h.registry.Current().Name()),
	})
}

func (h *DetectHandler) readUploads(w http.ResponseWriter, r *http.Request) ([]service.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[uploadField]
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: form field %q is required", service.ErrNoFiles, uploadField)
	}

	uploads := make([]service.Upload, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		uploads = append(uploads, service.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return uploads, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidFormat),
		errors.Is(err, service.ErrInvalidImage),
		errors.Is(err, service.ErrNoFiles):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, models.ErrorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to encode: %s", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
