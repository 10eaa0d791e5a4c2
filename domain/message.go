// Package domain contains core concepts of the chat archive.
// This file defines the persisted chat record and the listing order.
package domain

import "time"

// ChatRecord is the public shape of a persisted chat message.
// JSON names are the ones the chat clients already consume.
type ChatRecord struct {
	ID              string `json:"Id"`
	Author          string `json:"Who"`
	Content         string `json:"Content"`
	CreatedAtMillis int64  `json:"Datetime"`
	StorageKey      string `json:"RowKey"`
	Deleted         bool   `json:"Deleted"`
}

// CreatedAt returns the creation instant in UTC.
func (r ChatRecord) CreatedAt() time.Time {
	return time.UnixMilli(r.CreatedAtMillis).UTC()
}

// Order is the chronological order of a listing result.
type Order string

const (
	NewestFirst Order = "newest"
	OldestFirst Order = "oldest"
)

// ParseOrder maps a query value to an Order, falling back to def when empty.
func ParseOrder(value string, def Order) (Order, bool) {
	switch Order(value) {
	case "":
		return def, true
	case NewestFirst, OldestFirst:
		return Order(value), true
	default:
		return def, false
	}
}
