package services

import (
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"taskmanager/backend/models"
	"taskmanager/backend/storage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	MaxDocumentsPerTask    = 3
	DefaultMaxDocumentSize = 10 << 20
	PDFMimeType            = "application/pdf"
)

type AttachmentServiceInterface interface {
	ValidateAndStage(taskID uuid.UUID, files []*multipart.FileHeader, existingCount int) ([]models.Attachment, error)
	Commit(task *models.Task, staged []models.Attachment) error
	Discard(staged []models.Attachment)
	DeleteAll(task models.Task)
	Open(task models.Task, index int) (models.Attachment, storage.Blob, error)
}

type AttachmentService struct {
	store       storage.BlobStoreInterface
	maxFileSize int64
	logger      *zap.Logger
}

func NewAttachmentService(store storage.BlobStoreInterface, maxFileSize int64, logger *zap.Logger) *AttachmentService {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxDocumentSize
	}
	return &AttachmentService{
		store:       store,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// ValidateAndStage checks an upload batch and writes every file to the blob
// store. Nothing is written unless the whole batch is acceptable.
func (s *AttachmentService) ValidateAndStage(taskID uuid.UUID, files []*multipart.FileHeader, existingCount int) ([]models.Attachment, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > MaxDocumentsPerTask {
		return nil, NewValidationError("Too many files: at most %d documents per request", MaxDocumentsPerTask)
	}
	if existingCount+len(files) > MaxDocumentsPerTask {
		return nil, NewValidationError("Max %d documents allowed.", MaxDocumentsPerTask)
	}

	for _, fh := range files {
		if err := s.validateFile(fh); err != nil {
			return nil, err
		}
	}

	staged := make([]models.Attachment, 0, len(files))
	for _, fh := range files {
		attachment, err := s.stageFile(taskID, fh)
		if err != nil {
			s.Discard(staged)
			return nil, err
		}
		staged = append(staged, attachment)
	}

	return staged, nil
}

func (s *AttachmentService) validateFile(fh *multipart.FileHeader) error {
	if fh.Header.Get("Content-Type") != PDFMimeType {
		return NewValidationError("Only PDFs allowed: %s", displayName(fh.Filename))
	}
	if fh.Size > s.maxFileSize {
		return NewValidationError("File too large: %s exceeds %d bytes", displayName(fh.Filename), s.maxFileSize)
	}

	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	detected, err := mimetype.DetectReader(f)
	if err != nil {
		return fmt.Errorf("failed to inspect upload: %w", err)
	}
	if !detected.Is(PDFMimeType) {
		return NewValidationError("Only PDFs allowed: %s is %s", displayName(fh.Filename), detected.String())
	}
	return nil
}

func (s *AttachmentService) stageFile(taskID uuid.UUID, fh *multipart.FileHeader) (models.Attachment, error) {
	f, err := fh.Open()
	if err != nil {
		return models.Attachment{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	key := uuid.New().String() + ".pdf"
	blobPath := taskID.String() + "/" + key

	n, err := s.store.Put(blobPath, f)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("failed to store document: %w", err)
	}

	return models.Attachment{
		StorageKey:       key,
		OriginalFilename: displayName(fh.Filename),
		StoragePath:      blobPath,
		MimeType:         PDFMimeType,
		Size:             n,
	}, nil
}

// Commit appends staged attachments to the task, enforcing the per-task cap
// against the task's current list.
func (s *AttachmentService) Commit(task *models.Task, staged []models.Attachment) error {
	if len(staged) == 0 {
		return nil
	}
	if len(task.Documents)+len(staged) > MaxDocumentsPerTask {
		return NewValidationError("Max %d documents allowed.", MaxDocumentsPerTask)
	}
	task.Documents = append(task.Documents, staged...)
	return nil
}

// Discard removes blobs that were staged but never committed
func (s *AttachmentService) Discard(staged []models.Attachment) {
	for _, a := range staged {
		if err := s.store.Delete(a.StoragePath); err != nil && !errors.Is(err, storage.ErrBlobNotFound) {
			s.logger.Warn("failed to discard staged document",
				zap.String("path", a.StoragePath),
				zap.Error(err),
			)
		}
	}
}

// DeleteAll removes every blob of the task. Failures are logged and skipped.
func (s *AttachmentService) DeleteAll(task models.Task) {
	for _, doc := range task.Documents {
		err := s.store.Delete(doc.StoragePath)
		switch {
		case err == nil:
		case errors.Is(err, storage.ErrBlobNotFound):
			s.logger.Warn("document already missing",
				zap.String("task_id", task.ID.String()),
				zap.String("path", doc.StoragePath),
			)
		default:
			s.logger.Error("file delete error",
				zap.String("task_id", task.ID.String()),
				zap.String("path", doc.StoragePath),
				zap.Error(err),
			)
		}
	}
}

// Open returns the attachment at index together with its content
func (s *AttachmentService) Open(task models.Task, index int) (models.Attachment, storage.Blob, error) {
	if index < 0 || index >= len(task.Documents) {
		return models.Attachment{}, nil, ErrDocumentNotFound
	}

	doc := task.Documents[index]
	blob, err := s.store.Open(doc.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			s.logger.Warn("document blob missing",
				zap.String("task_id", task.ID.String()),
				zap.String("path", doc.StoragePath),
			)
			return models.Attachment{}, nil, ErrDocumentNotFound
		}
		return models.Attachment{}, nil, err
	}
	return doc, blob, nil
}

func displayName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "document.pdf"
	}
	return name
}
