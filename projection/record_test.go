package projection

import (
	"chat-api/domain"
	"chat-api/errors"
	"chat-api/storage"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

const testKey = "0000253402300799899"

func legacyEntity(deleted *structpb.Value) storage.Entity {
	fields := map[string]*structpb.Value{
		PropertyID:       structpb.NewStringValue("id-1"),
		PropertyAuthor:   structpb.NewStringValue("alice"),
		PropertyContent:  structpb.NewStringValue("hi"),
		PropertyDatetime: structpb.NewNumberValue(100),
	}
	if deleted != nil {
		fields[PropertyDeleted] = deleted
	}
	return storage.Entity{Key: testKey, Revision: 3, Properties: &structpb.Struct{Fields: fields}}
}

func TestProject_Without_Deleted_Flag(t *testing.T) {
	req := require.New(t)

	record, err := Project(legacyEntity(nil))
	req.NoError(err)
	req.False(record.Deleted)
	req.Equal(domain.ChatRecord{
		ID:              "id-1",
		Author:          "alice",
		Content:         "hi",
		CreatedAtMillis: 100,
		StorageKey:      testKey,
	}, record)
}

func TestProject_Deleted_Flag_Forms(t *testing.T) {
	for name, tc := range map[string]struct {
		value    *structpb.Value
		expected bool
	}{
		"bool true":     {structpb.NewBoolValue(true), true},
		"bool false":    {structpb.NewBoolValue(false), false},
		"string true":   {structpb.NewStringValue("true"), true},
		"string false":  {structpb.NewStringValue("false"), false},
		"explicit null": {structpb.NewNullValue(), false},
	} {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			record, err := Project(legacyEntity(tc.value))
			req.NoError(err)
			req.Equal(tc.expected, record.Deleted)
		})
	}
}

func TestProject_Malformed_Entities(t *testing.T) {
	for name, mutate := range map[string]func(fields map[string]*structpb.Value){
		"unparsable Deleted string": func(f map[string]*structpb.Value) { f[PropertyDeleted] = structpb.NewStringValue("maybe") },
		"numeric Deleted":           func(f map[string]*structpb.Value) { f[PropertyDeleted] = structpb.NewNumberValue(1) },
		"fractional Datetime":       func(f map[string]*structpb.Value) { f[PropertyDatetime] = structpb.NewNumberValue(100.5) },
		"string Datetime":           func(f map[string]*structpb.Value) { f[PropertyDatetime] = structpb.NewStringValue("100") },
		"missing Datetime":          func(f map[string]*structpb.Value) { delete(f, PropertyDatetime) },
		"missing Id":                func(f map[string]*structpb.Value) { delete(f, PropertyID) },
		"numeric Who":               func(f map[string]*structpb.Value) { f[PropertyAuthor] = structpb.NewNumberValue(7) },
	} {
		t.Run(name, func(t *testing.T) {
			entity := legacyEntity(nil)
			mutate(entity.Properties.Fields)
			_, err := Project(entity)
			require.ErrorIs(t, err, errors.ErrDataIntegrity)
		})
	}
}

func TestToEntity_Then_Project(t *testing.T) {
	req := require.New(t)
	record := domain.ChatRecord{
		ID:              "5f0c6f0e-8d3a-4b1e-9d6a-1c2b3d4e5f60",
		Author:          "bob",
		Content:         "yo",
		CreatedAtMillis: 1_700_000_000_123,
		StorageKey:      testKey,
		Deleted:         true,
	}

	projected, err := Project(ToEntity(record))
	req.NoError(err)
	req.Equal(record, projected)
}

func TestProjectAll_Stops_On_First_Malformed(t *testing.T) {
	req := require.New(t)
	broken := legacyEntity(nil)
	delete(broken.Properties.Fields, PropertyContent)

	_, err := ProjectAll([]storage.Entity{legacyEntity(nil), broken})
	req.ErrorIs(err, errors.ErrDataIntegrity)

	records, err := ProjectAll(nil)
	req.NoError(err)
	req.Empty(records)
}
