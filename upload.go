package main

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"medscan/pkg/ocr"
)

// upload is a request file saved under UPLOAD_BASE for the duration of an analysis.
type upload struct {
	Path        string
	FileName    string
	ContentType string
}

// remove deletes the saved file unless KEEP_UPLOADS is set. It returns the
// path that was kept, or "".
func (u *upload) remove() string {
	if cfg.KeepUploads {
		return u.Path
	}
	if err := os.Remove(u.Path); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove upload", zap.String("path", u.Path), zap.Error(err))
	}
	return ""
}

// saveUpload validates the multipart "file" field and stores it under
// UPLOAD_BASE/<folder>/ with a unique name.
func saveUpload(c *gin.Context, folder string) (*upload, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("file missing")
	}
	return storeUpload(c, file, folder)
}

func storeUpload(c *gin.Context, file *multipart.FileHeader, folder string) (*upload, error) {
	if file.Size > cfg.MaxUploadBytes() {
		return nil, fmt.Errorf("file too large (max %dMB)", cfg.MaxUploadMB)
	}
	name := filepath.Base(file.Filename)
	if !ocr.SupportedExt(name) {
		return nil, fmt.Errorf("unsupported file type %q (allowed: %s)", filepath.Ext(name), strings.Join(ocr.SupportedExtensions(), " "))
	}
	dir := filepath.Join(cfg.UploadBase, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir failed")
	}
	full := filepath.Join(dir, uuid.NewString()+strings.ToLower(filepath.Ext(name)))
	if err := c.SaveUploadedFile(file, full); err != nil {
		return nil, fmt.Errorf("save failed")
	}
	return &upload{Path: full, FileName: name, ContentType: file.Header.Get("Content-Type")}, nil
}
