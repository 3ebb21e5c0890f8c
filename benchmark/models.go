package main

import "time"

type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	BBox       [4]int  `json:"bbox"`
}

type DetectionResult struct {
	Filename   string      `json:"filename"`
	Detections []Detection `json:"detections"`
}

type DetectResponse struct {
	Results []DetectionResult `json:"results"`
}

type BenchResult struct {
	File       string
	Format     string
	Duration   time.Duration
	Detections int
	Err        error
	Size       int64
}

type Agg struct {
	Count      int
	Total      time.Duration
	TotalBytes int64
	Detections int
}
