package service

import (
	"errors"
	"fmt"

	"github.com/rl1809/sales-reconciler/internal/core/domain"
)

var (
	ErrStoreRead               = errors.New("store read failed")
	ErrInvalidSale             = errors.New("invalid pending sale")
	ErrUnknownProduct          = errors.New("unknown product")
	ErrSupplierNotFound        = errors.New("supplier not found")
	ErrCommit                  = errors.New("batch commit failed")
	ErrBatchInProgress         = errors.New("batch already in progress")
	ErrInvalidResupplyQuantity = errors.New("resupply quantity must not be negative")
)

// UnknownProductError aborts a batch when a sale references a product that is
// not in the inventory snapshot.
type UnknownProductError struct {
	Index     int
	ProductID domain.ProductID
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("transaction %d references product %d absent from inventory", e.Index, e.ProductID)
}

func (e *UnknownProductError) Unwrap() error {
	return ErrUnknownProduct
}

type SupplierNotFoundError struct {
	ProductID domain.ProductID
}

func (e *SupplierNotFoundError) Error() string {
	return fmt.Sprintf("no supplier for stocked-out product %d", e.ProductID)
}

func (e *SupplierNotFoundError) Unwrap() error {
	return ErrSupplierNotFound
}

type InvalidSaleError struct {
	Seq      int64
	Quantity int
}

func (e *InvalidSaleError) Error() string {
	return fmt.Sprintf("pending sale %d has non-positive quantity %d", e.Seq, e.Quantity)
}

func (e *InvalidSaleError) Unwrap() error {
	return ErrInvalidSale
}

// CommitError reports a failed ledger commit. The pending queue is untouched
// and the batch can be retried from a fresh snapshot.
type CommitError struct {
	BatchID string
	Err     error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit batch %s: %v", e.BatchID, e.Err)
}

func (e *CommitError) Unwrap() []error {
	return []error{ErrCommit, e.Err}
}

// IsFatal reports whether err should abort the batch. Everything the
// reconciler returns is fatal except a lock conflict, which means another run
// is already working on the queue.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, ErrBatchInProgress)
}
