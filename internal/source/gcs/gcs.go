// Package gcs resolves gs:// input/output URIs against Google Cloud
// Storage, so shard inputs and result outputs can live in object storage
// instead of local disk (SPEC_FULL.md §9).
package gcs

import (
	"context"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/aces-go/aces/internal/acerr"
)

// ParseURI splits a "gs://bucket/object" URI into its bucket and object
// components.
func ParseURI(uri string) (bucket, object string, err error) {
	const prefix = "gs://"
	if !strings.HasPrefix(uri, prefix) {
		return "", "", acerr.Newf(acerr.ConfigInvalid, uri, "not a gs:// uri")
	}
	rest := strings.TrimPrefix(uri, prefix)
	i := strings.Index(rest, "/")
	if i < 0 || i == len(rest)-1 {
		return "", "", acerr.Newf(acerr.ConfigInvalid, uri, "gs:// uri has no object path")
	}
	return rest[:i], rest[i+1:], nil
}

// Open opens uri for reading; the caller must Close the returned reader.
func Open(ctx context.Context, client *storage.Client, uri string) (io.ReadCloser, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, acerr.Wrap(acerr.DataShape, uri, err)
	}
	return r, nil
}

// Create opens uri for writing; the caller must Close the returned writer to
// flush and finalize the object.
func Create(ctx context.Context, client *storage.Client, uri string) (io.WriteCloser, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	return client.Bucket(bucket).Object(object).NewWriter(ctx), nil
}
