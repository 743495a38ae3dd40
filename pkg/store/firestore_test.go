package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// The firestore tests run against the emulator, e.g.
// FIRESTORE_EMULATOR_HOST=localhost:8080 go test ./pkg/store/...
func TestFirestoreStore(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	runStoreTests(t, func(t *testing.T) Store {
		ctx := context.Background()
		s, err := NewFirestoreStore(ctx, NewFirestoreStoreOptions{
			ProjectID:  "drag-test",
			Collection: "games-" + sanitizeCollection(t.Name()),
		})
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func sanitizeCollection(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '-')
		}
	}
	return string(out)
}
