package models

// Detection is one recognized object instance.
type Detection struct {
	Label      string  `json:"label" example:"dog"`
	Confidence float64 `json:"confidence" example:"0.92"`
	// BBox is [x1, y1, x2, y2] in pixel coordinates.
	BBox [4]int `json:"bbox" swaggertype:"array,integer" example:"100,150,200,250"`
}

// DetectionResult holds the detections for a single uploaded file.
type DetectionResult struct {
	Filename      string      `json:"filename" example:"dog.jpg"`
	Detections    []Detection `json:"detections"`
	AnnotatedFile string      `json:"annotated_file,omitempty" example:"3f0c9b1e2d6a4c8f9e7b5a3d1c0f2e4a_dog.jpg.png"`
}

type DetectResponse struct {
	Results []DetectionResult `json:"results"`
}

type AnnotatedResponse struct {
	Results     []DetectionResult `json:"results"`
	DownloadURL string            `json:"download_url" example:"/download/3f0c9b1e2d6a4c8f9e7b5a3d1c0f2e4a_annotated.zip"`
}

type MessageResponse struct {
	Message string `json:"message" example:"Model switched to yolov8s"`
}

type ModelsResponse struct {
	Current   string   `json:"current" example:"yolov8n"`
	Supported []string `json:"supported" example:"yolov8n,yolov8s"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
	Model  string `json:"model" example:"yolov8n"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Detail string `json:"detail" example:"Invalid image format. Use JPEG/PNG."`
}
