// Package content stores the editor's content files as opaque blobs keyed
// by slash-separated paths. It does not interpret file formats.
package content

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrInvalidKey is returned for empty keys and keys escaping the root.
var ErrInvalidKey = errors.New("invalid content key")

// Store is a flat blob store. Get returns common.ErrorNotFound for missing
// keys. Delete of a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// CleanKey normalizes key to a relative slash path. Keys containing ".."
// segments are rejected before cleaning.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", ErrInvalidKey
		}
	}

	key = strings.TrimPrefix(path.Clean("/"+key), "/")
	if key == "" || key == "." {
		return "", ErrInvalidKey
	}
	return key, nil
}

// cleanPrefix is CleanKey for list prefixes, where empty means everything.
func cleanPrefix(prefix string) (string, error) {
	if strings.Trim(prefix, "/ ") == "" {
		return "", nil
	}
	p, err := CleanKey(prefix)
	if err != nil {
		return "", err
	}
	if strings.HasSuffix(prefix, "/") {
		p += "/"
	}
	return p, nil
}
