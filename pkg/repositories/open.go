package repositories

import (
	"context"
	"fmt"
	"strings"
)

// Open builds a repository from a URL: memory://, sqlite://<path> or a
// postgres connection string.
func Open(ctx context.Context, url string) (Repository, error) {
	switch {
	case url == "" || strings.HasPrefix(url, "memory://"):
		return NewInMemoryRepository(), nil
	case strings.HasPrefix(url, "sqlite://"):
		return NewSQLiteRepository(ctx, strings.TrimPrefix(url, "sqlite://"))
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return NewPostgresRepository(ctx, url)
	default:
		return nil, fmt.Errorf("unsupported history url %q", url)
	}
}
