package main

import (
	"chat-api/projection"
	"chat-api/storage"
	"fmt"

	"github.com/mama165/sdk-go/database"
)

// ChatRecordMapper renders a stored chat record in the Badger inspector.
func ChatRecordMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)

	entity, err := storage.DecodeItem(key, val)
	if err != nil {
		return row
	}
	record, err := projection.Project(entity)
	if err != nil {
		row.Type = "MALFORMED"
		row.Detail = err.Error()
		return row
	}

	row.Type = "MESSAGE"
	if record.Deleted {
		row.Type = "DELETED"
	}
	row.Detail = fmt.Sprintf("%s @ %s (rev %d): %s",
		record.Author, record.CreatedAt().Format("2006-01-02 15:04:05.000"), entity.Revision, record.Content)
	return row
}
