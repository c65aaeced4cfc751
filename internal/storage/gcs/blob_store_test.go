package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// newTestBlobStore creates a BlobStore pointed at a fake GCS JSON API.
func newTestBlobStore(t *testing.T, handler http.Handler) *BlobStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := New(client, Config{Bucket: "progress-archive"})
	require.NoError(t, err)
	return store
}

func TestBlobStorePutObject(t *testing.T) {
	const objectName = "runs/abc.ndjson"
	payload := "{\"type\":\"status\",\"text\":\"a\"}\n"

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/upload/storage/v1/b/progress-archive/o")
		assert.Equal(t, objectName, r.URL.Query().Get("name"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(body), payload)
		assert.Contains(t, string(body), "application/x-ndjson")

		fmt.Fprintln(w, `{ "name": "`+objectName+`", "bucket": "progress-archive" }`)
	})
	store := newTestBlobStore(t, handler)

	uri, err := store.PutObject(context.Background(), objectName, "application/x-ndjson", strings.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, "gs://progress-archive/"+objectName, uri)
	require.NoError(t, store.Close())
}

func TestBlobStorePutObjectError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	store := newTestBlobStore(t, handler)

	_, err := store.PutObject(context.Background(), "runs/x.ndjson", "", strings.NewReader("{}"))
	require.Error(t, err)
}

func TestBlobStoreValidation(t *testing.T) {
	_, err := New(nil, Config{Bucket: "b"})
	require.ErrorContains(t, err, "client is required")

	store := &BlobStore{bucket: "b"}
	_, err = store.PutObject(context.Background(), "  ", "", strings.NewReader(""))
	require.ErrorContains(t, err, "path is required")

	_, err = Dial(context.Background(), Config{})
	require.ErrorContains(t, err, "bucket name is required")
}
