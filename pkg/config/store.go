package config

import (
	"context"
	"fmt"

	"github.com/cbodonnell/drag/pkg/store"
)

// OpenStore connects to the record store selected by cfg.
func OpenStore(ctx context.Context, cfg Config) (store.Store, error) {
	switch cfg.Store {
	case StoreMemory, "":
		return store.NewInMemoryStore(), nil
	case StoreRedis:
		s, err := store.NewRedisStore(ctx, store.NewRedisStoreOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case StoreFirestore:
		if cfg.FirebaseProjectID == "" {
			return nil, fmt.Errorf("a firebase project id is required for the firestore store")
		}
		s, err := store.NewFirestoreStore(ctx, store.NewFirestoreStoreOptions{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsFile: cfg.FirebaseCredentials,
			Collection:      cfg.FirestoreCollection,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
