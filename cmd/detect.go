package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/kdduha/detection-api/internal/models"
	"github.com/kdduha/detection-api/internal/service"
)

var (
	detectModel    string
	detectAnnotate bool
)

var detectCmd = &cobra.Command{
	Use:   "detect [flags] FILE...",
	Short: "Run detection on local images and print the JSON result",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		model := detectModel
		if model == "" {
			model = cfg.Detector.DefaultModel
		}

		a, err := newApp(cmd.Context(), cfg, logger, model)
		if err != nil {
			return err
		}
		defer a.Close()

		uploads, err := readUploads(args)
		if err != nil {
			return err
		}

		var resp any
		if detectAnnotate {
			resp, err = a.service.DetectAnnotated(cmd.Context(), uploads)
		} else {
			var results []models.DetectionResult
			results, err = a.service.Detect(cmd.Context(), uploads)
			resp = models.DetectResponse{Results: results}
		}
		if err != nil {
			return err
		}

		out, err := sonic.ConfigStd.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	detectCmd.Flags().StringVarP(&detectModel, "model", "m", "", "model name or alias (default: DETECTOR_DEFAULT_MODEL)")
	detectCmd.Flags().BoolVar(&detectAnnotate, "annotate", false, "store annotated images and a zip bundle in STORAGE_DIR")
	rootCmd.AddCommand(detectCmd)
}

// readUploads sniffs the media type from content, as a browser would set it.
func readUploads(paths []string) ([]service.Upload, error) {
	uploads := make([]service.Upload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		uploads = append(uploads, service.Upload{
			Filename:    filepath.Base(p),
			ContentType: http.DetectContentType(data),
			Data:        data,
		})
	}
	return uploads, nil
}
