package internal

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"messenger/repositories"

	"github.com/dgraph-io/badger/v4"
)

//go:embed inspect.html
var templatesFS embed.FS

const defaultPrefix = "msg:"

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

type InspectRow struct {
	Key string
	repositories.RecordView
}

type StatsProvider func() map[string]any

// NewInspectHandler lists the raw entries of the store under a key prefix,
// e.g. /inspect?prefix=person: to browse persons.
func NewInspectHandler(db *badger.DB, log *slog.Logger, statsProvider StatsProvider) http.Handler {
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = defaultPrefix
		}
		data := PageData{Prefix: prefix, Stats: make(map[string]any)}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		err := db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				key := string(item.KeyCopy(nil))
				err := item.Value(func(val []byte) error {
					data.Items = append(data.Items, InspectRow{Key: key, RecordView: repositories.DescribeRecord(key, val)})
					return nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			log.Warn("Inspecting store failed", "prefix", prefix, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			log.Warn("Rendering inspector failed", "error", err)
		}
	})
}
