package domain

import "errors"

var (
	// ErrFetch is returned when the catalog source cannot be reached or answers with a non-2xx status
	ErrFetch = errors.New("catalog source request failed")

	// ErrDecode is returned when a source payload is not valid JSON or lacks its collection key
	ErrDecode = errors.New("catalog source payload could not be decoded")

	// ErrRecordRejected is returned when a record fails the strict-mode or filter gate
	ErrRecordRejected = errors.New("record rejected")

	// ErrRelationAdd is returned when a many-to-many member cannot be added
	ErrRelationAdd = errors.New("relation member could not be added")

	// ErrCacheMiss is returned when a page is not present in the page cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrNotFound is returned when an entity does not exist in the catalog store
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrUnknownEntity is returned when a store is asked about an entity type it has no table for
	ErrUnknownEntity = errors.New("unknown entity type")

	// ErrUnknownField is returned when an upsert carries a field the entity does not define
	ErrUnknownField = errors.New("unknown entity field")
)
