// Package extraction turns a stored material file into plain text.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/SAP-F-2025/material-question-service/internal/models"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type for extraction")
	ErrFileNotFound        = errors.New("material file not found")
)

type Extractor interface {
	Extract(ctx context.Context, material *models.SourceMaterial) (string, error)
}

// FileExtractor reads materials from a local storage root.
type FileExtractor struct {
	root   string
	logger *slog.Logger
}

func NewFileExtractor(root string, logger *slog.Logger) *FileExtractor {
	return &FileExtractor{root: root, logger: logger}
}

func (e *FileExtractor) Extract(ctx context.Context, material *models.SourceMaterial) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := e.resolve(material.StoragePath)
	fileType := normalizeFileType(material.FileType, path)

	e.logger.Info("Extracting material text", "material_id", material.ID, "file_type", fileType)

	switch fileType {
	case "txt", "md", "csv", "text":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", e.wrapReadError(err)
		}
		return string(data), nil
	case "xlsx", "xlsm":
		f, err := os.Open(path)
		if err != nil {
			return "", e.wrapReadError(err)
		}
		defer f.Close()
		return extractSpreadsheet(f)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, fileType)
	}
}

// resolve keeps storage paths inside the root.
func (e *FileExtractor) resolve(storagePath string) string {
	return filepath.Join(e.root, filepath.Clean("/"+storagePath))
}

func (e *FileExtractor) wrapReadError(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return ErrFileNotFound
	}
	return fmt.Errorf("failed to read material file: %w", err)
}

func normalizeFileType(fileType, path string) string {
	fileType = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(fileType), "."))
	switch fileType {
	case "text/plain":
		return "txt"
	case "text/markdown":
		return "md"
	case "text/csv":
		return "csv"
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return "xlsx"
	case "":
		return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	}
	return fileType
}
