package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/noah-isme/toko-subscribe/internal/meta"
)

// getJSON decodes the stored value into dst. It reports whether the key existed. Values that
// do not decode are returned as errDecode so callers can treat them as absent.
func getJSON(ctx context.Context, store meta.Store, owner, key string, dst any) (bool, error) {
	data, found, err := store.Get(ctx, owner, key)
	if err != nil {
		return false, fmt.Errorf("catalog: read %s/%s: %w", owner, key, err)
	}
	if !found || len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("%w: %s/%s: %v", errDecode, owner, key, err)
	}
	return true, nil
}

// putJSON serialises v as JSON and stores it.
func putJSON(ctx context.Context, store meta.Store, owner, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := store.Put(ctx, owner, key, data); err != nil {
		return fmt.Errorf("catalog: write %s/%s: %w", owner, key, err)
	}
	return nil
}

func deleteKeys(ctx context.Context, store meta.Store, owner string, keys ...string) error {
	for _, key := range keys {
		if err := store.Delete(ctx, owner, key); err != nil {
			return fmt.Errorf("catalog: delete %s/%s: %w", owner, key, err)
		}
	}
	return nil
}
