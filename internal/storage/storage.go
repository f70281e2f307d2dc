// Package storage holds the object stores that keep generated images and booth photos.
package storage

import (
	"context"
	"errors"
	"strings"
)

// ErrObjectNotFound is returned when a key has no stored object.
var ErrObjectNotFound = errors.New("object not found")

// ErrInvalidKey is returned for empty keys or keys that escape the store root.
var ErrInvalidKey = errors.New("invalid object key")

// PutOptions carries the HTTP metadata stored with an object.
type PutOptions struct {
	ContentType  string
	CacheControl string
}

// ObjectStore is a flat key/value store with public URLs.
type ObjectStore interface {
	// Put stores data under key and returns the object's public URL.
	Put(ctx context.Context, key string, opts PutOptions, data []byte) (string, error)
	// Get returns the object stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
}

func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return "", ErrInvalidKey
		}
	}
	return key, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
