// Package source provides the document stores the collection is loaded from.
package source

import (
	"context"
)

// Store enumerates and reads raw documents. Ids are stable, URL-safe names
// that double as the fallback slug.
type Store interface {
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, id string) ([]byte, error)
}
