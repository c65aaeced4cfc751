package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/progress-pipeline/internal/progress"
)

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

const ndjsonContentType = "application/x-ndjson"

// Archive collects every event record and uploads the whole stream as one
// NDJSON object when the pipeline finishes.
type Archive struct {
	blobs  BlobStore
	object string
	logger *zap.Logger

	buf bytes.Buffer
	uri string
}

// NewArchive returns an Archive uploading to <prefix>/<runID>.ndjson.
func NewArchive(blobs BlobStore, prefix string, runID uuid.UUID, logger *zap.Logger) (*Archive, error) {
	if blobs == nil {
		return nil, errors.New("blob store is required")
	}
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archive{
		blobs:  blobs,
		object: path.Join(prefix, runID.String()+".ndjson"),
		logger: logger,
	}, nil
}

// Handle appends the record for evt to the pending object.
func (a *Archive) Handle(_ context.Context, evt progress.Event) error {
	line, err := encodeLine(evt)
	if err != nil {
		return err
	}
	a.buf.Write(line)
	return nil
}

// Finish uploads the collected records.
func (a *Archive) Finish(ctx context.Context) error {
	uri, err := a.blobs.PutObject(ctx, a.object, ndjsonContentType, bytes.NewReader(a.buf.Bytes()))
	if err != nil {
		return fmt.Errorf("upload archive: %w", err)
	}
	a.uri = uri
	a.logger.Info("progress archive uploaded", zap.String("uri", uri), zap.Int("bytes", a.buf.Len()))
	return nil
}

// URI returns where the archive was uploaded, or "" before Finish succeeds.
func (a *Archive) URI() string {
	return a.uri
}
