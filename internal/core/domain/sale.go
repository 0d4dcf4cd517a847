package domain

import "time"

type DateID int64

// PendingSale is one row of the unprocessed sales queue. Seq is the store row id.
type PendingSale struct {
	Seq          int64
	DateID       DateID
	CustLocation string
	ProductID    ProductID
	Quantity     int
	HashedEmail  string
}

type ProcessedSale struct {
	DateID       DateID
	ProcessedAt  time.Time
	CustLocation string
	ProductID    ProductID
	Quantity     int
	Fulfilled    bool
	HashedEmail  string
}

// FulfillmentFlag is the persisted 0/1 form of Fulfilled.
func (s ProcessedSale) FulfillmentFlag() int {
	if s.Fulfilled {
		return 1
	}
	return 0
}

type ResupplyOrder struct {
	DateID     DateID
	SupplierID SupplierID
	ProductID  ProductID
	Quantity   int
	// SupplierUnresolved marks orders dispatched without a known supplier;
	// SupplierID is zero and the order needs manual follow-up.
	SupplierUnresolved bool
}
