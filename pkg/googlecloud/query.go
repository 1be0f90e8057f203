package googlecloud

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/maruel/natural"
	"google.golang.org/api/iterator"

	"github.com/locvowork/excelstream/pkg/simpleexcel"
)

// KeyField is the row key holding the entity key name or id.
const KeyField = "__key__"

// KindQuery describes an export of one kind.
type KindQuery struct {
	Kind    string
	Filters []Filter
	Order   []string
	Limit   int
	Cursor  string
}

// Filter is a property filter such as {"priority >=", 3}.
type Filter struct {
	Expr  string
	Value interface{}
}

// Query builds the datastore query.
func (q KindQuery) Query() (*datastore.Query, error) {
	if q.Kind == "" {
		return nil, fmt.Errorf("kind cannot be empty")
	}
	query := datastore.NewQuery(q.Kind)
	for _, f := range q.Filters {
		query = query.Filter(f.Expr, f.Value)
	}
	for _, o := range q.Order {
		query = query.Order(o)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if q.Cursor != "" {
		cursor, err := datastore.DecodeCursor(q.Cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor: %w", err)
		}
		query = query.Start(cursor)
	}
	return query, nil
}

// Iterator is the part of *datastore.Iterator read by EntityProvider.
type Iterator interface {
	Next(dst interface{}) (*datastore.Key, error)
}

// EntityProvider streams query results as map rows. Each entity becomes a
// map of its properties plus KeyField.
type EntityProvider struct {
	it      Iterator
	current map[string]interface{}
	count   int64
	err     error
	closed  bool
}

var _ simpleexcel.DataProvider = (*EntityProvider)(nil)

// QueryProvider runs q and returns a provider over its results.
func (c *Client) QueryProvider(ctx context.Context, q *datastore.Query) *EntityProvider {
	return NewEntityProvider(c.ds.Run(ctx, q))
}

// NewEntityProvider reads entities from it until iterator.Done.
func NewEntityProvider(it Iterator) *EntityProvider {
	return &EntityProvider{it: it}
}

func (p *EntityProvider) Next() bool {
	if p.closed {
		p.err = simpleexcel.ErrConsumed
		return false
	}
	if p.err != nil {
		return false
	}
	var props datastore.PropertyList
	key, err := p.it.Next(&props)
	if errors.Is(err, iterator.Done) {
		p.current = nil
		return false
	}
	if err != nil {
		p.err = fmt.Errorf("read entity: %w", err)
		p.current = nil
		return false
	}
	p.current = entityRow(key, props)
	p.count++
	return true
}

func (p *EntityProvider) Row() interface{} {
	if p.current == nil {
		return nil
	}
	return p.current
}

func (p *EntityProvider) Err() error { return p.err }

// Count returns the number of entities read.
func (p *EntityProvider) Count() int64 { return p.count }

func (p *EntityProvider) Close() error {
	p.closed = true
	p.current = nil
	return nil
}

func entityRow(key *datastore.Key, props datastore.PropertyList) map[string]interface{} {
	row := make(map[string]interface{}, len(props)+1)
	if key != nil {
		row[KeyField] = keyValue(key)
	}
	for _, prop := range props {
		flattenProperty(row, prop.Name, prop.Value)
	}
	return row
}

func keyValue(key *datastore.Key) interface{} {
	if key.Name != "" {
		return key.Name
	}
	return key.ID
}

// flattenProperty stores nested entity properties under dotted names.
func flattenProperty(row map[string]interface{}, name string, v interface{}) {
	switch x := v.(type) {
	case *datastore.Entity:
		if x == nil {
			row[name] = nil
			return
		}
		for _, p := range x.Properties {
			flattenProperty(row, name+"."+p.Name, p.Value)
		}
	default:
		row[name] = cellValue(v)
	}
}

// cellValue converts datastore values the renderer cannot write directly.
func cellValue(v interface{}) interface{} {
	switch x := v.(type) {
	case *datastore.Key:
		if x == nil {
			return nil
		}
		return x.String()
	case datastore.GeoPoint:
		return fmt.Sprintf("%g,%g", x.Lat, x.Lng)
	case []interface{}:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = fmt.Sprint(cellValue(e))
		}
		return strings.Join(parts, ", ")
	case time.Time:
		return x.UTC()
	default:
		return v
	}
}

// EntityColumns returns the key column followed by the property names of
// sample in natural order.
func EntityColumns(sample map[string]interface{}) []simpleexcel.Column {
	names := make([]string, 0, len(sample))
	for k := range sample {
		if k != KeyField {
			names = append(names, k)
		}
	}
	sort.Sort(natural.StringSlice(names))
	return simpleexcel.MapColumns(append([]string{KeyField}, names...)...)
}
