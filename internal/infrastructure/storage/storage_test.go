package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/claim-review/internal/application/port"
	"github.com/garyjia/claim-review/internal/domain/claim"
)

func TestLocalDocumentStore_PutFetch(t *testing.T) {
	s := NewLocalDocumentStore(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &port.Document{ID: "reports/c-1.xlsx", Content: []byte("xlsx")}))

	doc, err := s.Fetch(ctx, "reports/c-1.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "c-1.xlsx", doc.Name)
	assert.Equal(t, []byte("xlsx"), doc.Content)

	_, err = s.Fetch(ctx, "missing.pdf")
	assert.ErrorIs(t, err, claim.ErrNotFound)
}

func TestLocalDocumentStore_RejectsEscapingIDs(t *testing.T) {
	s := NewLocalDocumentStore(t.TempDir(), zap.NewNop())

	for _, id := range []string{"../secret", "a/../../b", ""} {
		_, err := s.Fetch(context.Background(), id)
		assert.Error(t, err, id)
	}
}

type mockS3 struct {
	objects map[string][]byte
	types   map[string]string
	meta    map[string]map[string]string
}

func newMockS3() *mockS3 {
	return &mockS3{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
		meta:    make(map[string]map[string]string),
	}
}

func (m *mockS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Key)
	body, ok := m.objects[key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:        io.NopCloser(bytes.NewReader(body)),
		ContentType: aws.String(m.types[key]),
		Metadata:    m.meta[key],
	}, nil
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.objects[key] = body
	m.types[key] = aws.ToString(in.ContentType)
	m.meta[key] = in.Metadata
	return &s3.PutObjectOutput{}, nil
}

func TestS3DocumentStore_PutFetch(t *testing.T) {
	client := newMockS3()
	s := NewS3DocumentStore(client, "claims", "/docs/", zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &port.Document{ID: "c-1/ledger.pdf", Name: "Ledger FY25.pdf", Content: []byte("%PDF")}))
	assert.Contains(t, client.objects, "docs/c-1/ledger.pdf")
	assert.Equal(t, "application/pdf", client.types["docs/c-1/ledger.pdf"])

	doc, err := s.Fetch(ctx, "c-1/ledger.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Ledger FY25.pdf", doc.Name)
	assert.Equal(t, []byte("%PDF"), doc.Content)

	_, err = s.Fetch(ctx, "c-1/none.pdf")
	assert.ErrorIs(t, err, claim.ErrNotFound)
}
