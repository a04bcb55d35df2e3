package main

import (
	"chat-relay/repositories"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
)

type row struct {
	key    string
	record repositories.Record
}

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	prefix := flag.String("prefix", "", "Prefix to scan (msg:, room:, notif:, user: ...)")
	kind := flag.String("kind", "", "Only show one kind (MESSAGE, ROOM, NOTIFICATION, USER, INDEX)")
	indexes := flag.Bool("indexes", false, "Show index entries")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer func() { _ = db.Close() }()

	rows, err := scan(db, *prefix, func(r repositories.Record) bool {
		if r.Kind == "INDEX" && !*indexes && *kind != "INDEX" {
			return false
		}
		return *kind == "" || strings.EqualFold(r.Kind, *kind)
	})
	if err != nil {
		log.Fatal(err)
	}
	render(rows)
}

// scan decodes every entry under prefix. A record that cannot be decoded is
// reported and skipped.
func scan(db *badger.DB, prefix string, keep func(repositories.Record) bool) ([]row, error) {
	var rows []row
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			key := string(it.Item().Key())
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			record, err := repositories.Describe(key, val)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error decoding key %s: %v\n", key, err)
				continue
			}
			if keep(record) {
				rows = append(rows, row{key: key, record: record})
			}
		}
		return nil
	})
	return rows, err
}

func render(rows []row) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Kind", "Timestamp", "Entity ID", "Detail"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator("")
	table.SetTablePadding("\t")

	for _, r := range rows {
		at := ""
		if !r.record.At.IsZero() {
			at = r.record.At.Format("2006-01-02 15:04:05")
		}
		// 8 characters are enough to tell entities apart
		id := r.record.EntityID
		if len(id) > 8 {
			id = id[:8]
		}
		table.Append([]string{r.key, r.record.Kind, at, id, r.record.Detail})
	}
	table.Render()
	fmt.Printf("%d records\n", len(rows))
}

// openDB opens read-only. A relay that crashed leaves a value log to
// truncate, which takes one writable open first.
func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err == nil || !strings.Contains(err.Error(), "Log truncate required") {
		return db, err
	}
	repaired, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil).WithBypassLockGuard(true))
	if err != nil {
		return nil, fmt.Errorf("repair failed: %w", err)
	}
	_ = repaired.Close()
	return badger.Open(opts)
}
