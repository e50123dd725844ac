package core

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/labelsense/labelsense/internal/store"
)

// UploadService writes uploaded files under a fixed directory and records
// their metadata. File write and row insert are two separate steps; a crash
// in between leaves an orphaned file, which is accepted.
type UploadService struct {
	dbStore   *store.SQLiteStore
	uploadDir string
	logger    *zap.Logger
}

// NewUploadService creates the upload directory if it does not exist yet.
func NewUploadService(db *store.SQLiteStore, uploadDir string, logger *zap.Logger) (*UploadService, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", uploadDir, err)
	}
	return &UploadService{dbStore: db, uploadDir: uploadDir, logger: logger}, nil
}

// UploadDir returns the directory uploads are written to.
func (s *UploadService) UploadDir() string {
	return s.uploadDir
}

// SaveUpload stores the file bytes under a collision-resistant name that
// keeps the original extension, then inserts the metadata row and returns
// the new image id.
func (s *UploadService) SaveUpload(file multipart.File, header *multipart.FileHeader) (int64, error) {
	storedName := uuid.NewString() + filepath.Ext(header.Filename)
	storedPath := filepath.Join(s.uploadDir, storedName)

	dst, err := os.Create(storedPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create upload file: %w", err)
	}
	written, err := io.Copy(dst, file)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write upload file: %w", err)
	}

	mimeType := header.Header.Get("Content-Type")
	id, err := s.dbStore.InsertImage(store.ImageMeta{
		Filename:     storedName,
		OriginalName: header.Filename,
		MimeType:     mimeType,
		Size:         written,
		Path:         storedPath,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert image metadata: %w", err)
	}

	s.logger.Info("upload received",
		zap.String("originalname", header.Filename),
		zap.String("mimetype", mimeType),
		zap.Int64("size", written),
		zap.String("path", storedPath))
	return id, nil
}
