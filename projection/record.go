// Package projection converts stored entities into public chat records.
// Pure functions only: no store access, no logging.
package projection

import (
	"chat-api/domain"
	"chat-api/errors"
	"chat-api/storage"
	"fmt"
	"math"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"
)

// Property names of a stored chat entity. They are part of the on-disk format.
const (
	PropertyID       = "Id"
	PropertyAuthor   = "Who"
	PropertyContent  = "Content"
	PropertyDatetime = "Datetime"
	PropertyDeleted  = "Deleted"
)

// Project builds the public record from a stored entity.
// Deleted defaults to false for entities written before the flag existed.
// A missing or mistyped required property is reported as ErrDataIntegrity.
func Project(entity storage.Entity) (domain.ChatRecord, error) {
	fields := entity.Properties.GetFields()

	id, err := stringProperty(entity.Key, fields, PropertyID)
	if err != nil {
		return domain.ChatRecord{}, err
	}
	author, err := stringProperty(entity.Key, fields, PropertyAuthor)
	if err != nil {
		return domain.ChatRecord{}, err
	}
	content, err := stringProperty(entity.Key, fields, PropertyContent)
	if err != nil {
		return domain.ChatRecord{}, err
	}
	createdAt, err := millisProperty(entity.Key, fields, PropertyDatetime)
	if err != nil {
		return domain.ChatRecord{}, err
	}
	deleted, err := deletedProperty(entity.Key, fields)
	if err != nil {
		return domain.ChatRecord{}, err
	}

	return domain.ChatRecord{
		ID:              id,
		Author:          author,
		Content:         content,
		CreatedAtMillis: createdAt,
		StorageKey:      entity.Key,
		Deleted:         deleted,
	}, nil
}

// ProjectAll projects entities keeping their order.
func ProjectAll(entities []storage.Entity) ([]domain.ChatRecord, error) {
	records := make([]domain.ChatRecord, 0, len(entities))
	for _, entity := range entities {
		record, err := Project(entity)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// ToEntity is the inverse of Project. The revision is left at zero.
func ToEntity(record domain.ChatRecord) storage.Entity {
	return storage.Entity{
		Key: record.StorageKey,
		Properties: &structpb.Struct{Fields: map[string]*structpb.Value{
			PropertyID:       structpb.NewStringValue(record.ID),
			PropertyAuthor:   structpb.NewStringValue(record.Author),
			PropertyContent:  structpb.NewStringValue(record.Content),
			PropertyDatetime: structpb.NewNumberValue(float64(record.CreatedAtMillis)),
			PropertyDeleted:  structpb.NewBoolValue(record.Deleted),
		}},
	}
}

func stringProperty(key string, fields map[string]*structpb.Value, name string) (string, error) {
	value, ok := fields[name]
	if !ok {
		return "", fmt.Errorf("%w: key %s has no %s", errors.ErrDataIntegrity, key, name)
	}
	str, ok := value.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: key %s: %s is not a string", errors.ErrDataIntegrity, key, name)
	}
	return str.StringValue, nil
}

func millisProperty(key string, fields map[string]*structpb.Value, name string) (int64, error) {
	value, ok := fields[name]
	if !ok {
		return 0, fmt.Errorf("%w: key %s has no %s", errors.ErrDataIntegrity, key, name)
	}
	number, ok := value.GetKind().(*structpb.Value_NumberValue)
	if !ok || number.NumberValue != math.Trunc(number.NumberValue) {
		return 0, fmt.Errorf("%w: key %s: %s is not an integer", errors.ErrDataIntegrity, key, name)
	}
	return int64(number.NumberValue), nil
}

// deletedProperty accepts the boolean form and the "true"/"false" strings
// older writers stored.
func deletedProperty(key string, fields map[string]*structpb.Value) (bool, error) {
	value, ok := fields[PropertyDeleted]
	if !ok {
		return false, nil
	}
	switch kind := value.GetKind().(type) {
	case *structpb.Value_BoolValue:
		return kind.BoolValue, nil
	case *structpb.Value_StringValue:
		deleted, err := strconv.ParseBool(kind.StringValue)
		if err != nil {
			return false, fmt.Errorf("%w: key %s: Deleted is %q", errors.ErrDataIntegrity, key, kind.StringValue)
		}
		return deleted, nil
	case *structpb.Value_NullValue:
		return false, nil
	default:
		return false, fmt.Errorf("%w: key %s: Deleted has an unexpected type", errors.ErrDataIntegrity, key)
	}
}
