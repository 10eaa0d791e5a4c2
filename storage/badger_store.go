package storage

import (
	chaterrors "chat-api/errors"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// revisionField is reserved in the encoded value to carry the entity revision.
const revisionField = "_rev"

// BadgerStore keeps a table in an embedded BadgerDB.
// Every entity of the table is stored under "chat:{table}:{key}", so the table
// prefix plays the role of the single partition.
type BadgerStore struct {
	db     *badger.DB
	log    *slog.Logger
	table  string
	prefix []byte
}

func NewBadgerStore(db *badger.DB, log *slog.Logger, table string) *BadgerStore {
	return &BadgerStore{
		db:     db,
		log:    log,
		table:  table,
		prefix: []byte(TablePrefix(table)),
	}
}

func (b *BadgerStore) EnsureTable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	marker := []byte("table:" + b.table)
	err := b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(marker)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, badger.ErrKeyNotFound):
			b.log.Info("Creating table", "table", b.table)
			return txn.Set(marker, []byte(b.table))
		default:
			return err
		}
	})
	return b.wrap(err)
}

func (b *BadgerStore) Put(ctx context.Context, entity Entity) (Entity, error) {
	if err := ctx.Err(); err != nil {
		return Entity{}, err
	}
	var stored Entity
	err := b.db.Update(func(txn *badger.Txn) error {
		current, err := b.read(txn, entity.Key)
		switch {
		case err == nil:
			entity.Revision = current.Revision + 1
		case errors.Is(err, chaterrors.ErrNotFound):
			entity.Revision = 1
		default:
			return err
		}
		stored = entity
		return b.write(txn, entity)
	})
	if err != nil {
		return Entity{}, b.wrap(err)
	}
	return stored, nil
}

// CompareAndPut runs the revision check and the write inside one read-write
// transaction. Badger aborts the commit with ErrConflict when another
// transaction wrote the key in between, which is reported the same way.
func (b *BadgerStore) CompareAndPut(ctx context.Context, entity Entity) (Entity, error) {
	if err := ctx.Err(); err != nil {
		return Entity{}, err
	}
	var stored Entity
	err := b.db.Update(func(txn *badger.Txn) error {
		current, err := b.read(txn, entity.Key)
		if err != nil {
			return err
		}
		if current.Revision != entity.Revision {
			return fmt.Errorf("%w: key %s at revision %d, expected %d",
				chaterrors.ErrConflict, entity.Key, current.Revision, entity.Revision)
		}
		entity.Revision++
		stored = entity
		return b.write(txn, entity)
	})
	if err != nil {
		return Entity{}, b.wrap(err)
	}
	return stored, nil
}

func (b *BadgerStore) Get(ctx context.Context, key string) (Entity, error) {
	if err := ctx.Err(); err != nil {
		return Entity{}, err
	}
	var entity Entity
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		entity, err = b.read(txn, key)
		return err
	})
	if err != nil {
		return Entity{}, b.wrap(err)
	}
	return entity, nil
}

// Scan iterates the table prefix. Values are decoded after the iteration so
// the transaction stays short.
func (b *BadgerStore) Scan(ctx context.Context, opts ScanOptions) ([]Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	type raw struct {
		key   string
		value []byte
	}
	var raws []raw
	prefixLen := len(b.prefix)
	err := b.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = opts.Reverse
		options.Prefix = b.prefix
		if opts.Limit > 0 && opts.Limit < options.PrefetchSize {
			options.PrefetchSize = opts.Limit
		}
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch {
		case opts.Reverse && opts.To == "":
			// 0xff sorts after every digit, so this lands on the last key of the table
			seekKey = append(append([]byte{}, b.prefix...), 0xff)
		case opts.Reverse:
			seekKey = append(append([]byte{}, b.prefix...), opts.To...)
		default:
			seekKey = append(append([]byte{}, b.prefix...), opts.From...)
		}

		for it.Seek(seekKey); it.ValidForPrefix(b.prefix); it.Next() {
			if opts.Limit > 0 && len(raws) == opts.Limit {
				break
			}
			item := it.Item()
			key := string(item.Key()[prefixLen:])
			if !opts.Reverse && opts.To != "" && key > opts.To {
				break
			}
			if opts.Reverse && opts.From != "" && key < opts.From {
				break
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			raws = append(raws, raw{key: key, value: value})
		}
		return nil
	})
	if err != nil {
		return nil, b.wrap(err)
	}

	entities := make([]Entity, 0, len(raws))
	for _, r := range raws {
		entity, err := decodeEntity(r.key, r.value)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

func (b *BadgerStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		fullKey := b.fullKey(key)
		if _, err := txn.Get(fullKey); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: key %s", chaterrors.ErrNotFound, key)
			}
			return err
		}
		return txn.Delete(fullKey)
	})
	return b.wrap(err)
}

// Close is a no-op: the BadgerDB handle belongs to the caller that opened it.
func (b *BadgerStore) Close() error {
	return nil
}

func (b *BadgerStore) fullKey(key string) []byte {
	return append(append([]byte{}, b.prefix...), key...)
}

func (b *BadgerStore) read(txn *badger.Txn, key string) (Entity, error) {
	item, err := txn.Get(b.fullKey(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return Entity{}, fmt.Errorf("%w: key %s", chaterrors.ErrNotFound, key)
		}
		return Entity{}, err
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return Entity{}, err
	}
	return decodeEntity(key, value)
}

func (b *BadgerStore) write(txn *badger.Txn, entity Entity) error {
	value, err := encodeEntity(entity)
	if err != nil {
		return err
	}
	return txn.Set(b.fullKey(entity.Key), value)
}

// wrap leaves the repository's own error kinds untouched and classifies
// everything else as a store failure.
func (b *BadgerStore) wrap(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, chaterrors.ErrNotFound),
		errors.Is(err, chaterrors.ErrConflict),
		errors.Is(err, chaterrors.ErrDataIntegrity),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, badger.ErrConflict):
		return fmt.Errorf("%w: %v", chaterrors.ErrConflict, err)
	default:
		return fmt.Errorf("%w: badger: %v", chaterrors.ErrUnavailable, err)
	}
}

// TablePrefix is the key prefix shared by every entity of table.
func TablePrefix(table string) string {
	return fmt.Sprintf("chat:%s:", table)
}

// DecodeItem rebuilds the entity held by a raw Badger item of a chat table.
// Used by the offline inspectors, which walk the database without a store.
func DecodeItem(rawKey string, value []byte) (Entity, error) {
	if !strings.HasPrefix(rawKey, "chat:") {
		return Entity{}, fmt.Errorf("%w: %s is not a chat record", chaterrors.ErrInvalidArgument, rawKey)
	}
	return decodeEntity(rawKey[strings.LastIndex(rawKey, ":")+1:], value)
}

func encodeEntity(entity Entity) ([]byte, error) {
	fields := make(map[string]*structpb.Value, len(entity.Properties.GetFields())+1)
	for name, value := range entity.Properties.GetFields() {
		fields[name] = value
	}
	fields[revisionField] = structpb.NewNumberValue(float64(entity.Revision))
	return proto.Marshal(&structpb.Struct{Fields: fields})
}

func decodeEntity(key string, value []byte) (Entity, error) {
	var properties structpb.Struct
	if err := proto.Unmarshal(value, &properties); err != nil {
		return Entity{}, fmt.Errorf("%w: key %s: %v", chaterrors.ErrDataIntegrity, key, err)
	}
	entity := Entity{Key: key, Properties: &properties}
	if rev, ok := properties.Fields[revisionField]; ok {
		entity.Revision = int64(rev.GetNumberValue())
		delete(properties.Fields, revisionField)
	}
	if properties.Fields == nil {
		properties.Fields = map[string]*structpb.Value{}
	}
	return entity, nil
}
