package models

import "errors"

// Base error kinds shared by the store and the moderation engine. Store
// sentinels wrap these so callers can classify without importing the store.
var (
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("store temporarily unavailable")
)
