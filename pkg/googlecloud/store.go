package googlecloud

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/datastore"
)

// maxBatch is the Datastore limit of entities per commit.
const maxBatch = 500

const (
	putWorkers = 4
	putRetries = 3
	putBackoff = 250 * time.Millisecond
)

// maxIndexedBytes is the largest string Datastore can index.
const maxIndexedBytes = 1500

// SaveRows stores imported rows as entities of kind. When keyField is set its
// value becomes the key name, otherwise ids are allocated. Rows are written in
// concurrent batches; the number of stored rows is returned.
func (c *Client) SaveRows(ctx context.Context, kind, keyField string, rows []map[string]string) (int, error) {
	if kind == "" {
		return 0, fmt.Errorf("kind cannot be empty")
	}
	batches, err := rowBatches(kind, keyField, rows)
	if err != nil {
		return 0, err
	}
	w := &writer{
		workers: putWorkers,
		retries: putRetries,
		backoff: putBackoff,
		put: func(ctx context.Context, b batch) error {
			_, err := c.ds.PutMulti(ctx, b.keys, b.entities)
			return err
		},
	}
	saved, err := w.run(ctx, feed(batches))
	c.log.Debug().Str("kind", kind).Int("saved", saved).Int("batches", len(batches)).Msg("stored rows")
	return saved, err
}

func feed(batches []batch) <-chan batch {
	ch := make(chan batch, len(batches))
	for _, b := range batches {
		ch <- b
	}
	close(ch)
	return ch
}

// rowBatches converts every row before anything is written, so a bad key
// rejects the whole import.
func rowBatches(kind, keyField string, rows []map[string]string) ([]batch, error) {
	var batches []batch
	for start := 0; start < len(rows); start += maxBatch {
		end := start + maxBatch
		if end > len(rows) {
			end = len(rows)
		}
		keys, entities, err := rowEntities(kind, keyField, start+1, rows[start:end])
		if err != nil {
			return nil, fmt.Errorf("rows %d-%d: %w", start+1, end, err)
		}
		batches = append(batches, batch{first: start + 1, keys: keys, entities: entities})
	}
	return batches, nil
}

// rowEntities builds keys and entities for rows; first is the 1-based row
// number of rows[0], used in errors.
func rowEntities(kind, keyField string, first int, rows []map[string]string) ([]*datastore.Key, []datastore.PropertyList, error) {
	keys := make([]*datastore.Key, len(rows))
	entities := make([]datastore.PropertyList, len(rows))
	for i, row := range rows {
		if keyField == "" {
			keys[i] = datastore.IncompleteKey(kind, nil)
		} else {
			name := row[keyField]
			if name == "" {
				return nil, nil, fmt.Errorf("row %d: empty key %q", first+i, keyField)
			}
			keys[i] = datastore.NameKey(kind, name, nil)
		}
		entities[i] = rowProperties(row, keyField)
	}
	return keys, entities, nil
}

// rowProperties turns cell text into properties, keeping integers and
// floats as numbers.
func rowProperties(row map[string]string, keyField string) datastore.PropertyList {
	props := make(datastore.PropertyList, 0, len(row))
	for name, text := range row {
		if name == keyField || name == "" {
			continue
		}
		var v interface{} = text
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			v = n
		} else if f, err := strconv.ParseFloat(text, 64); err == nil {
			v = f
		}
		props = append(props, datastore.Property{
			Name:    name,
			Value:   v,
			NoIndex: len(text) > maxIndexedBytes,
		})
	}
	return props
}
