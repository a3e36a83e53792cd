package matching

import (
	"errors"
)

// Typed failures surfaced by ranking calls. Check with errors.Is.
var (
	// ErrItemNotFound means the query item does not exist in the read model.
	ErrItemNotFound = errors.New("item not found")

	// ErrItemNotMatchable means the query item's status has no opposite to
	// pair with (claimed or closed items cannot be ranked).
	ErrItemNotMatchable = errors.New("item status is not matchable")

	// ErrRetrievalFailed wraps item store errors. Fatal to the ranking call.
	ErrRetrievalFailed = errors.New("candidate retrieval failed")

	// ErrPersistenceFailed wraps match store errors. Fatal to the
	// persistence step only; ranked results are still returned alongside it.
	ErrPersistenceFailed = errors.New("match persistence failed")

	// ErrInvalidConfig rejects unusable configuration at construction.
	ErrInvalidConfig = errors.New("invalid matching config")
)
