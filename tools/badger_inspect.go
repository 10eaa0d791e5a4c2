package main

import (
	"chat-api/projection"
	"chat-api/storage"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "./data/chat", "Path to badger DB")
	table := flag.String("table", "chatdev", "Chat table to dump")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	out := tablewriter.NewWriter(os.Stdout)
	out.SetHeader([]string{"Key", "Decoded At", "Rev", "Id", "Who", "Content", "Deleted"})
	out.SetAutoWrapText(false)
	out.SetAutoFormatHeaders(true)
	out.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	out.SetAlignment(tablewriter.ALIGN_LEFT)
	out.SetCenterSeparator("")
	out.SetColumnSeparator("")
	out.SetRowSeparator("")
	out.SetHeaderLine(false)
	out.SetBorder(false)
	out.SetTablePadding("\t")

	prefix := []byte(storage.TablePrefix(*table))
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 100})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			rawKey := string(item.Key())
			err := item.Value(func(v []byte) error {
				entity, err := storage.DecodeItem(rawKey, v)
				if err != nil {
					fmt.Printf("Error decoding key %s: %v\n", rawKey, err)
					return nil
				}

				at := "invalid key"
				if millis, err := storage.DecodeKey(entity.Key); err == nil {
					at = time.UnixMilli(millis).UTC().Format("2006-01-02 15:04:05.000")
				}

				record, err := projection.Project(entity)
				if err != nil {
					out.Append([]string{entity.Key, at, strconv.FormatInt(entity.Revision, 10), "", "", err.Error(), ""})
					return nil
				}

				displayID := record.ID
				if len(displayID) > 8 {
					displayID = displayID[:8]
				}
				out.Append([]string{
					entity.Key,
					at,
					strconv.FormatInt(entity.Revision, 10),
					displayID,
					record.Author,
					record.Content,
					strconv.FormatBool(record.Deleted),
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	out.Render()
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err != nil && strings.Contains(err.Error(), "Log truncate required") {
		// a crashed writer leaves the value log untruncated; open once for writing to repair
		repaired, repairErr := badger.Open(badger.DefaultOptions(path).WithLogger(nil).WithBypassLockGuard(true))
		if repairErr != nil {
			return nil, fmt.Errorf("repair failed: %w", repairErr)
		}
		_ = repaired.Close()
		return badger.Open(opts)
	}
	return db, err
}
