package port

import "context"

// Document is a stored file with its content
type Document struct {
	ID          string
	Name        string
	ContentType string
	Content     []byte
}

// DocumentStore serves supporting documents by id
type DocumentStore interface {
	Fetch(ctx context.Context, documentID string) (*Document, error)
}

// DocumentWriter stores generated artifacts such as reports
type DocumentWriter interface {
	Put(ctx context.Context, doc *Document) error
}
