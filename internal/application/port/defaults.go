package port

import (
	"context"
	"errors"
)

// BoolWithDefault reads key, returning def when the key is absent.
// Malformed values still fail.
func BoolWithDefault(ctx context.Context, store ConfigStore, key string, def bool) (bool, error) {
	v, err := store.Bool(ctx, key)
	if isMissing(err) {
		return def, nil
	}
	return v, err
}

// DecimalWithDefault reads key in cents, returning def when the key is absent
func DecimalWithDefault(ctx context.Context, store ConfigStore, key string, def int64) (int64, error) {
	v, err := store.Decimal(ctx, key)
	if isMissing(err) {
		return def, nil
	}
	return v, err
}

// IntWithDefault reads key, returning def when the key is absent
func IntWithDefault(ctx context.Context, store ConfigStore, key string, def int64) (int64, error) {
	v, err := store.Int(ctx, key)
	if isMissing(err) {
		return def, nil
	}
	return v, err
}

// ErrConfigMissing marks an absent key. Stores wrap it together with
// workflow.ErrConfiguration.
var ErrConfigMissing = errors.New("config key missing")

func isMissing(err error) bool {
	return errors.Is(err, ErrConfigMissing)
}
