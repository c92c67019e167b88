// Package errs contains sentinel errors used across layers for stable error mapping.
//
// The text of each sentinel is safe to show to callers; raw backend errors never
// leave the service layer.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("could not find an item for the provided id")

	// ErrOwnerNotFound indicates the creator referenced by a new item does not exist.
	ErrOwnerNotFound = errors.New("could not find user for provided id")

	// ErrOwnerItemsNotFound indicates the user is missing or owns no items.
	ErrOwnerItemsNotFound = errors.New("could not find items for the provided user id")

	// ErrValidation indicates malformed or missing input fields.
	ErrValidation = errors.New("invalid inputs passed, please check your data")

	// ErrStoreUnavailable indicates a backend failure on a read.
	ErrStoreUnavailable = errors.New("something went wrong, please try again later")

	// ErrCreateFailed indicates the create protocol was aborted.
	ErrCreateFailed = errors.New("creating item failed, please try again")

	// ErrUpdateFailed indicates the item could not be persisted on update.
	ErrUpdateFailed = errors.New("something went wrong, could not update item")

	// ErrDeleteFailed indicates the delete protocol was aborted.
	ErrDeleteFailed = errors.New("something went wrong, could not delete item")

	// ErrVersionConflict indicates a document changed between read and write.
	ErrVersionConflict = errors.New("document was modified concurrently")

	// ErrForeignTx indicates a repository received a transaction opened by another backend.
	ErrForeignTx = errors.New("transaction does not belong to this store")
)
