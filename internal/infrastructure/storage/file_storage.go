// Package storage serves supporting documents and stores generated reports,
// either on the local filesystem or in an S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/claim-review/internal/application/port"
	"github.com/garyjia/claim-review/internal/domain/claim"
)

// LocalDocumentStore keeps documents under a base directory, keyed by their
// id as a relative path
type LocalDocumentStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalDocumentStore creates a new LocalDocumentStore
func NewLocalDocumentStore(baseDir string, logger *zap.Logger) *LocalDocumentStore {
	return &LocalDocumentStore{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Fetch reads the document stored under documentID
func (s *LocalDocumentStore) Fetch(ctx context.Context, documentID string) (*port.Document, error) {
	fullPath, err := s.resolve(documentID)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: document %s", claim.ErrNotFound, documentID)
	}
	if err != nil {
		s.logger.Error("Failed to read document",
			zap.String("path", fullPath),
			zap.Error(err))
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	s.logger.Debug("Document read",
		zap.String("document_id", documentID),
		zap.Int("size", len(content)))

	return &port.Document{
		ID:          documentID,
		Name:        filepath.Base(fullPath),
		ContentType: contentType(fullPath),
		Content:     content,
	}, nil
}

// Put writes doc under doc.ID, creating parent directories
func (s *LocalDocumentStore) Put(ctx context.Context, doc *port.Document) error {
	fullPath, err := s.resolve(doc.ID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create parent directories",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.WriteFile(fullPath, doc.Content, 0644); err != nil {
		s.logger.Error("Failed to write document",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to write document: %w", err)
	}

	s.logger.Debug("Document saved",
		zap.String("document_id", doc.ID),
		zap.Int("size", len(doc.Content)))
	return nil
}

// resolve maps a document id to a path inside baseDir
func (s *LocalDocumentStore) resolve(documentID string) (string, error) {
	if strings.TrimSpace(documentID) == "" {
		return "", fmt.Errorf("empty document id")
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(s.baseDir, documentID))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("document id escapes base directory: %s", documentID)
	}
	return absPath, nil
}

func contentType(name string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		return t
	}
	return "application/octet-stream"
}

var (
	_ port.DocumentStore  = (*LocalDocumentStore)(nil)
	_ port.DocumentWriter = (*LocalDocumentStore)(nil)
)
