// Package artifacts handles the front end's disk interactions: resolving
// source images for edit jobs and downloading produced images. The engine
// itself never touches the filesystem.
package artifacts

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nanobanan/banana/internal/db/models"
	"github.com/nanobanan/banana/internal/logger"
)

// LoadImage reads an image file and returns its base64 encoding and MIME
// type, ready to be snapshotted into an edit job's parameters.
func LoadImage(path string) (data, mimeType string, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read source image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), MIMEFromPath(path), nil
}

// MIMEFromPath guesses the image MIME type from the file extension
func MIMEFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/png"
	}
}

func extFromMIME(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}

// Download decodes a completed job's artifacts into the output directory
// and returns the written paths. Files are named <jobid>_<index>.<ext>.
func Download(job *models.Job, outputDir string) ([]string, error) {
	if job.Status != models.JobStatusCompleted {
		return nil, fmt.Errorf("job %s is %s, only completed jobs have artifacts", job.ID, job.Status)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var paths []string
	for _, img := range job.Images {
		if img.Data == "" {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			return paths, fmt.Errorf("failed to decode image %d: %w", img.Index, err)
		}
		path := filepath.Join(outputDir, fmt.Sprintf("%s_%d.%s", job.ID, img.Index, extFromMIME(img.MIMEType)))
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return paths, fmt.Errorf("failed to write image %d: %w", img.Index, err)
		}
		logger.Infof("saved image to %s", path)
		paths = append(paths, path)
	}
	return paths, nil
}
