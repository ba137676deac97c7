package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/princinho/smartshop/config"
)

type FileValidator struct {
	allowedExt  map[string]bool
	allowedMime map[string]bool
	maxSize     int64
}

func NewImageValidator(cfg config.StorageConfig) *FileValidator {
	allowedExt := make(map[string]bool)
	for _, ext := range cfg.AllowedExt {
		if ext = strings.TrimSpace(strings.ToLower(ext)); ext != "" {
			allowedExt[ext] = true
		}
	}

	allowedMime := make(map[string]bool)
	for _, m := range cfg.AllowedMime {
		if m = strings.TrimSpace(strings.ToLower(m)); m != "" {
			allowedMime[m] = true
		}
	}

	sizeMB := cfg.MaxUploadSizeMB
	if sizeMB <= 0 {
		sizeMB = 5
	}

	return &FileValidator{
		allowedExt:  allowedExt,
		allowedMime: allowedMime,
		maxSize:     int64(sizeMB) << 20,
	}
}

// ValidateFile checks size and extension, then sniffs the first bytes and
// returns the detected MIME type.
func (v *FileValidator) ValidateFile(fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader.Size > v.maxSize {
		return "", fmt.Errorf("file too large (max %d MB)", v.maxSize>>20)
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !v.allowedExt[ext] {
		return "", fmt.Errorf("invalid file extension")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file header")
	}

	detectedMime := strings.ToLower(http.DetectContentType(buffer[:n]))
	if !v.allowedMime[detectedMime] {
		return "", fmt.Errorf("invalid file type")
	}

	return detectedMime, nil
}
