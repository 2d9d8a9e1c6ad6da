// Package objectstore stores uploaded images under caller-chosen paths and
// hands back publicly resolvable URLs.
package objectstore

import (
	"context"
	"errors"
	"strings"
)

// ErrObjectExists is returned when a path is already taken. Uploads never
// overwrite.
var ErrObjectExists = errors.New("object already exists")

type Store interface {
	// Put stores data at path and returns its public URL.
	Put(ctx context.Context, path, contentType string, data []byte) (string, error)
}

func publicURL(base, bucket, path string) string {
	return strings.TrimRight(base, "/") + "/" + bucket + "/" + strings.TrimLeft(path, "/")
}
