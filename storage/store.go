//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_record_store.go -package=mocks
package storage

import (
	"context"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Entity is a record as the table stores it.
// Properties are loosely typed: a property written by an older version of the
// service may be missing, and interpreting them is the projection's job.
type Entity struct {
	Key string
	// Revision is bumped by every write and acts as an etag for CompareAndPut.
	// Zero means the entity has never been stored.
	Revision   int64
	Properties *structpb.Struct
}

// Clone returns a deep copy so callers can mutate properties safely.
func (e Entity) Clone() Entity {
	clone := Entity{Key: e.Key, Revision: e.Revision}
	if e.Properties != nil {
		clone.Properties = proto.Clone(e.Properties).(*structpb.Struct)
	}
	return clone
}

// ScanOptions bounds a range scan. Both bounds are inclusive and an empty
// bound is open. Results come in ascending key order unless Reverse is set,
// in which case the scan starts at To and walks down towards From.
type ScanOptions struct {
	From    string
	To      string
	Limit   int
	Reverse bool
}

// IRecordStore is the gateway to a single logical table of chat entities.
// All entities live in one partition so a scan is a global ordered scan.
//
// Errors: ErrNotFound for a missing key, ErrConflict for a stale revision,
// ErrUnavailable wrapping anything the underlying store reports.
type IRecordStore interface {
	// EnsureTable creates the table when it does not exist. Idempotent.
	EnsureTable(ctx context.Context) error
	// Put creates or fully overwrites the entity regardless of its revision.
	Put(ctx context.Context, entity Entity) (Entity, error)
	// CompareAndPut overwrites the entity only when the stored revision still
	// equals entity.Revision.
	CompareAndPut(ctx context.Context, entity Entity) (Entity, error)
	Get(ctx context.Context, key string) (Entity, error)
	Scan(ctx context.Context, opts ScanOptions) ([]Entity, error)
	// Delete removes the entity permanently.
	Delete(ctx context.Context, key string) error
	Close() error
}
