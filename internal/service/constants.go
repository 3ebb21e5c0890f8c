package service

const (
	MediaJPEG = "image/jpeg"
	MediaPNG  = "image/png"
)

const (
	endpointDetect    = "detect"
	endpointAnnotated = "detect_annotated"
)
