package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	backendEndpoint = "http://localhost:8080/detect"

	formatFiles = map[string]string{
		"jpg": "image/jpeg",
		"png": "image/png",
	}
)

func main() {
	ctx := context.Background()

	if url := os.Getenv("BENCH_ENDPOINT"); url != "" {
		backendEndpoint = url
	}

	formats := make([]string, 0, len(formatFiles))
	for f := range formatFiles {
		formats = append(formats, f)
	}
	sort.Strings(formats)

	var results []BenchResult
	for _, format := range formats {
		dataPath := filepath.Join(".", "data", format)

		images, _ := os.ReadDir(dataPath)

		for _, img := range images {
			if img.IsDir() {
				continue
			}
			res := benchmarkImage(ctx, filepath.Join(dataPath, img.Name()), format)

			if res.Err != nil {
				log.Println("ERR:", res.Err)
			} else {
				log.Printf("OK %s %v (%d objects)", res.File, res.Duration, res.Detections)
			}

			results = append(results, res)
		}
	}

	printMarkdown(results)
}

func benchmarkImage(ctx context.Context, filePath, format string) BenchResult {
	fileRaw, err := os.ReadFile(filePath)
	if err != nil {
		return BenchResult{File: filePath, Err: err}
	}

	start := time.Now()
	resp, err := sendDetect(ctx, filepath.Base(filePath), formatFiles[format], fileRaw)

	res := BenchResult{
		File:     filepath.Base(filePath),
		Format:   format,
		Duration: time.Since(start),
		Err:      err,
		Size:     int64(len(fileRaw)),
	}
	if resp != nil {
		for _, r := range resp.Results {
			res.Detections += len(r.Detections)
		}
	}
	return res
}

func sendDetect(ctx context.Context, filename, contentType string, data []byte) (*DetectResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, backendEndpoint, &body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bad status %d: %s",
			resp.StatusCode,
			strings.TrimSpace(string(b)),
		)
	}

	var out DetectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func aggregate(results []BenchResult) map[string]Agg {
	m := map[string]Agg{}
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		a := m[r.Format]
		a.Count++
		a.TotalBytes += r.Size
		a.Total += r.Duration
		a.Detections += r.Detections
		m[r.Format] = a
	}
	return m
}

func printMarkdown(results []BenchResult) {
	fmt.Println("\n## Benchmark Results")
	fmt.Println()
	fmt.Println("| Format | Requests | Avg Time | Total Time | Avg File Size | Objects |")
	fmt.Println("|--------|----------|----------|------------|---------------|---------|")

	agg := aggregate(results)
	formats := make([]string, 0, len(agg))
	for f := range agg {
		formats = append(formats, f)
	}
	sort.Strings(formats)

	var (
		totalCount      int
		totalDuration   time.Duration
		totalBytes      int64
		totalDetections int
	)

	for _, format := range formats {
		a := agg[format]
		avg := a.Total / time.Duration(a.Count)
		avgSize := a.TotalBytes / int64(a.Count)
		fmt.Printf("| %s | %d | %v | %v | %s | %d |\n",
			format,
			a.Count,
			avg.Round(time.Millisecond),
			a.Total.Round(time.Millisecond),
			humanBytes(avgSize),
			a.Detections,
		)
		totalCount += a.Count
		totalDuration += a.Total
		totalBytes += a.TotalBytes
		totalDetections += a.Detections
	}

	if totalCount > 0 {
		mean := totalDuration / time.Duration(totalCount)
		avgSize := totalBytes / int64(totalCount)
		fmt.Printf("| **ALL** | %d | %v | %v | %s | %d |\n",
			totalCount,
			mean.Round(time.Millisecond),
			totalDuration.Round(time.Millisecond),
			humanBytes(avgSize),
			totalDetections,
		)
	}
}

func humanBytes(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case size >= GB:
		return fmt.Sprintf("%.2f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.2f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.2f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d B", size)
	}
}
