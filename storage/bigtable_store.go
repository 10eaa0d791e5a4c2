package storage

import (
	chaterrors "chat-api/errors"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"cloud.google.com/go/bigtable"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// propertyFamily holds one column per entity property.
	propertyFamily = "p"
	// metaFamily holds the revision column.
	metaFamily     = "m"
	revisionColumn = "rev"
)

// BigtableConfig identifies the table in a Cloud Bigtable instance.
type BigtableConfig struct {
	Project  string
	Instance string
	Table    string
	// DisableMetrics turns off the client's built-in metrics export, which the
	// emulator cannot receive.
	DisableMetrics bool
}

// BigtableStore keeps a table in Cloud Bigtable. The storage key is the row
// key, so the whole table is one ordered keyspace.
type BigtableStore struct {
	client *bigtable.Client
	admin  *bigtable.AdminClient
	table  *bigtable.Table
	name   string
	log    *slog.Logger
}

// NewBigtableStore dials the data and admin APIs. Options carry credentials or
// a pre-dialed connection (emulator, tests).
func NewBigtableStore(ctx context.Context, config BigtableConfig, log *slog.Logger, opts ...option.ClientOption) (*BigtableStore, error) {
	clientConfig := bigtable.ClientConfig{}
	if config.DisableMetrics {
		clientConfig.MetricsProvider = bigtable.NoopMetricsProvider{}
	}
	client, err := bigtable.NewClientWithConfig(ctx, config.Project, config.Instance, clientConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: bigtable client: %v", chaterrors.ErrUnavailable, err)
	}
	admin, err := bigtable.NewAdminClient(ctx, config.Project, config.Instance, opts...)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: bigtable admin client: %v", chaterrors.ErrUnavailable, err)
	}
	return &BigtableStore{
		client: client,
		admin:  admin,
		table:  client.Open(config.Table),
		name:   config.Table,
		log:    log,
	}, nil
}

func (s *BigtableStore) EnsureTable(ctx context.Context) error {
	tables, err := s.admin.Tables(ctx)
	if err != nil {
		return s.wrap(err)
	}
	if !slices.Contains(tables, s.name) {
		s.log.Info("Creating table", "table", s.name)
		if err = s.admin.CreateTable(ctx, s.name); err != nil && status.Code(err) != codes.AlreadyExists {
			return s.wrap(err)
		}
	}
	info, err := s.admin.TableInfo(ctx, s.name)
	if err != nil {
		return s.wrap(err)
	}
	for _, family := range []string{propertyFamily, metaFamily} {
		if slices.Contains(info.Families, family) {
			continue
		}
		if err = s.admin.CreateColumnFamily(ctx, s.name, family); err != nil && status.Code(err) != codes.AlreadyExists {
			return s.wrap(err)
		}
	}
	return nil
}

// Put overwrites the row. The revision is read first and bumped without a
// condition: concurrent Puts are last-write-wins by contract.
func (s *BigtableStore) Put(ctx context.Context, entity Entity) (Entity, error) {
	current, err := s.Get(ctx, entity.Key)
	switch {
	case err == nil:
		entity.Revision = current.Revision + 1
	case errors.Is(err, chaterrors.ErrNotFound):
		entity.Revision = 1
	default:
		return Entity{}, err
	}
	mutation, err := s.mutation(entity)
	if err != nil {
		return Entity{}, err
	}
	if err = s.table.Apply(ctx, entity.Key, mutation); err != nil {
		return Entity{}, s.wrap(err)
	}
	return entity, nil
}

// CompareAndPut applies the write as a conditional mutation on the latest
// revision cell, so the check and the write are atomic on the server.
func (s *BigtableStore) CompareAndPut(ctx context.Context, entity Entity) (Entity, error) {
	expected := entity.Revision
	entity.Revision++
	mutation, err := s.mutation(entity)
	if err != nil {
		return Entity{}, err
	}
	filter := bigtable.ChainFilters(
		bigtable.FamilyFilter("^"+metaFamily+"$"),
		bigtable.ColumnFilter("^"+revisionColumn+"$"),
		bigtable.LatestNFilter(1),
		bigtable.ValueFilter("^"+regexp.QuoteMeta(strconv.FormatInt(expected, 10))+"$"),
	)
	var matched bool
	err = s.table.Apply(ctx, entity.Key, bigtable.NewCondMutation(filter, mutation, nil),
		bigtable.GetCondMutationResult(&matched))
	if err != nil {
		return Entity{}, s.wrap(err)
	}
	if matched {
		return entity, nil
	}
	// The condition failed: tell a missing row apart from a stale revision.
	current, err := s.Get(ctx, entity.Key)
	if err != nil {
		return Entity{}, err
	}
	return Entity{}, fmt.Errorf("%w: key %s at revision %d, expected %d",
		chaterrors.ErrConflict, entity.Key, current.Revision, expected)
}

func (s *BigtableStore) Get(ctx context.Context, key string) (Entity, error) {
	row, err := s.table.ReadRow(ctx, key, bigtable.RowFilter(bigtable.LatestNFilter(1)))
	if err != nil {
		return Entity{}, s.wrap(err)
	}
	if len(row) == 0 {
		return Entity{}, fmt.Errorf("%w: key %s", chaterrors.ErrNotFound, key)
	}
	return decodeRow(row)
}

// Scan reads the range in ascending key order, or descending with Reverse.
// The limit is applied by the server in both directions.
func (s *BigtableStore) Scan(ctx context.Context, opts ScanOptions) ([]Entity, error) {
	var rowRange bigtable.RowRange
	if opts.To == "" {
		rowRange = bigtable.InfiniteRange(opts.From)
	} else {
		// keys are digits only, so appending 0x00 makes the upper bound inclusive
		rowRange = bigtable.NewRange(opts.From, opts.To+"\x00")
	}
	readOpts := []bigtable.ReadOption{bigtable.RowFilter(bigtable.LatestNFilter(1))}
	if opts.Reverse {
		readOpts = append(readOpts, bigtable.ReverseScan())
	}
	if opts.Limit > 0 {
		readOpts = append(readOpts, bigtable.LimitRows(int64(opts.Limit)))
	}

	var entities []Entity
	var decodeErr error
	err := s.table.ReadRows(ctx, rowRange, func(row bigtable.Row) bool {
		entity, err := decodeRow(row)
		if err != nil {
			decodeErr = err
			return false
		}
		entities = append(entities, entity)
		return true
	}, readOpts...)
	if err != nil {
		return nil, s.wrap(err)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return entities, nil
}

func (s *BigtableStore) Delete(ctx context.Context, key string) error {
	if _, err := s.Get(ctx, key); err != nil {
		return err
	}
	mutation := bigtable.NewMutation()
	mutation.DeleteRow()
	return s.wrap(s.table.Apply(ctx, key, mutation))
}

func (s *BigtableStore) Close() error {
	return errors.Join(s.client.Close(), s.admin.Close())
}

// mutation replaces every property cell and the revision of a row.
func (s *BigtableStore) mutation(entity Entity) (*bigtable.Mutation, error) {
	mutation := bigtable.NewMutation()
	mutation.DeleteCellsInFamily(propertyFamily)
	mutation.DeleteCellsInFamily(metaFamily)
	now := bigtable.Now()
	for name, value := range entity.Properties.GetFields() {
		encoded, err := proto.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode property %s: %w", name, err)
		}
		mutation.Set(propertyFamily, name, now, encoded)
	}
	mutation.Set(metaFamily, revisionColumn, now, []byte(strconv.FormatInt(entity.Revision, 10)))
	return mutation, nil
}

func (s *BigtableStore) wrap(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: bigtable: %v", chaterrors.ErrUnavailable, err)
	}
}

func decodeRow(row bigtable.Row) (Entity, error) {
	entity := Entity{
		Key:        row.Key(),
		Properties: &structpb.Struct{Fields: map[string]*structpb.Value{}},
	}
	for _, item := range row[propertyFamily] {
		name := strings.TrimPrefix(item.Column, propertyFamily+":")
		var value structpb.Value
		if err := proto.Unmarshal(item.Value, &value); err != nil {
			return Entity{}, fmt.Errorf("%w: key %s property %s: %v", chaterrors.ErrDataIntegrity, entity.Key, name, err)
		}
		entity.Properties.Fields[name] = &value
	}
	for _, item := range row[metaFamily] {
		if item.Column != metaFamily+":"+revisionColumn {
			continue
		}
		revision, err := strconv.ParseInt(string(item.Value), 10, 64)
		if err != nil {
			return Entity{}, fmt.Errorf("%w: key %s revision %q", chaterrors.ErrDataIntegrity, entity.Key, item.Value)
		}
		entity.Revision = revision
	}
	return entity, nil
}
