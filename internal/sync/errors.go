package sync

import "errors"

// Processing error taxonomy. Signature and duplicate outcomes are resolved
// locally and never surfaced to the vendor; mapping and persistence failures
// land in the dead-letter queue.
var (
	// ErrSignatureInvalid marks a webhook whose HMAC did not verify. Rejected
	// silently: the vendor still receives a success response.
	ErrSignatureInvalid = errors.New("webhook signature invalid")

	// ErrDuplicateEvent marks an event already processed within the
	// idempotency window. A no-op short-circuit, not a failure.
	ErrDuplicateEvent = errors.New("duplicate event")

	// ErrMapping marks a vendor payload that could not be translated into
	// internal records.
	ErrMapping = errors.New("event mapping failed")

	// ErrPersist marks a database write failure during event processing.
	ErrPersist = errors.New("event persistence failed")

	// ErrStoreUnavailable marks the idempotency or dead-letter backing store
	// itself failing.
	ErrStoreUnavailable = errors.New("sync backing store unavailable")
)
