package models

import "time"

// OrderRecord is a purchase-order header as stored locally. ExternalOrderID
// is the identifier under which the external procurement system knows the
// order; reconciliation is impossible without it.
type OrderRecord struct {
	ID              string     `json:"id"`
	Number          string     `json:"number"`
	ExternalOrderID string     `json:"external_order_id,omitempty"`
	Supplier        string     `json:"supplier,omitempty"`
	Location        string     `json:"location,omitempty"`
	Status          string     `json:"status,omitempty"`
	OrderedAt       *time.Time `json:"ordered_at,omitempty"`
	SyncedAt        *time.Time `json:"synced_at,omitempty"`
}

// HasExternalOrder reports whether the order was transmitted to the external
// system and can therefore be reconciled.
func (o *OrderRecord) HasExternalOrder() bool {
	return o.ExternalOrderID != ""
}

// FetchOptions controls how remote order lines are obtained. ForceRefresh
// bypasses the cache for a live read; CacheOnly never touches the network and
// is used by bulk report runs that tolerate stale data.
type FetchOptions struct {
	ForceRefresh bool
	CacheOnly    bool
}
