package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrEmptyPool is returned when a resolve call is given no candidate pool
	ErrEmptyPool = errors.New("candidate pool is empty")

	// ErrCacheMiss is returned when a key is not found in the match cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrStorageUnavailable is returned when observation history cannot be
	// read or written; the only hard failure in the engine, always propagated
	ErrStorageUnavailable = errors.New("observation storage unavailable")

	// ErrProductNotFound is returned by read queries for an unknown product id
	ErrProductNotFound = errors.New("product not found")
)
