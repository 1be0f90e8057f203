package simpleexcel

import (
	"context"
	"fmt"
	"reflect"
)

// DataProvider yields the rows of a sheet one at a time, forward only.
//
//	for p.Next() {
//		row := p.Row()
//	}
//	if err := p.Err(); err != nil { ... }
type DataProvider interface {
	// Next advances to the next row and reports whether there is one.
	Next() bool
	// Row returns the current row. Valid only after Next returned true.
	Row() interface{}
	// Err returns the error that stopped iteration, if any.
	Err() error
	// Close releases any resources held by the provider.
	Close() error
}

// SliceDataProvider iterates an in-memory slice.
type SliceDataProvider struct {
	v      reflect.Value
	pos    int
	closed bool
	err    error
}

// NewSliceDataProvider creates a DataProvider over a slice or a pointer to one.
func NewSliceDataProvider(data interface{}) (*SliceDataProvider, error) {
	if data == nil {
		return nil, fmt.Errorf("data cannot be nil")
	}

	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("data must be a slice, got %s", v.Kind())
	}
	return &SliceDataProvider{v: v, pos: -1}, nil
}

func (p *SliceDataProvider) Next() bool {
	if p.closed {
		p.err = ErrConsumed
		return false
	}
	if p.pos+1 >= p.v.Len() {
		p.pos = p.v.Len()
		return false
	}
	p.pos++
	return true
}

func (p *SliceDataProvider) Row() interface{} {
	if p.pos < 0 || p.pos >= p.v.Len() {
		return nil
	}
	return p.v.Index(p.pos).Interface()
}

func (p *SliceDataProvider) Err() error { return p.err }

func (p *SliceDataProvider) Close() error {
	p.closed = true
	return nil
}

// ChannelDataProvider reads rows from a channel until it is closed.
type ChannelDataProvider struct {
	dataChan <-chan interface{}
	current  interface{}
	closed   bool
	err      error
}

// NewChannelDataProvider creates a DataProvider for channel data.
func NewChannelDataProvider(dataChan <-chan interface{}) *ChannelDataProvider {
	return &ChannelDataProvider{dataChan: dataChan}
}

func (p *ChannelDataProvider) Next() bool {
	if p.closed {
		p.err = ErrConsumed
		return false
	}
	item, ok := <-p.dataChan
	if !ok {
		p.current = nil
		return false
	}
	p.current = item
	return true
}

func (p *ChannelDataProvider) Row() interface{} { return p.current }

func (p *ChannelDataProvider) Err() error { return p.err }

// Close stops reading. The producer owns the channel and is not drained.
func (p *ChannelDataProvider) Close() error {
	p.closed = true
	p.current = nil
	return nil
}

// IteratorDataProvider wraps a pull function returning (row, ok, err).
type IteratorDataProvider struct {
	iterator func() (interface{}, bool, error)
	current  interface{}
	done     bool
	closed   bool
	err      error
}

// NewIteratorDataProvider creates a DataProvider for custom iterator functions.
func NewIteratorDataProvider(iterator func() (interface{}, bool, error)) *IteratorDataProvider {
	return &IteratorDataProvider{iterator: iterator}
}

func (p *IteratorDataProvider) Next() bool {
	if p.closed {
		p.err = ErrConsumed
		return false
	}
	if p.done || p.err != nil {
		return false
	}
	item, ok, err := p.iterator()
	if err != nil {
		p.err = err
		p.done = true
		return false
	}
	if !ok {
		p.done = true
		p.current = nil
		return false
	}
	p.current = item
	return true
}

func (p *IteratorDataProvider) Row() interface{} { return p.current }

func (p *IteratorDataProvider) Err() error { return p.err }

func (p *IteratorDataProvider) Close() error {
	p.closed = true
	p.current = nil
	return nil
}

// NewFuncDataProvider creates a provider producing count rows with gen(i).
// It is handy for generated data sets that should never be materialized.
func NewFuncDataProvider(count int, gen func(i int) interface{}) *IteratorDataProvider {
	i := 0
	return NewIteratorDataProvider(func() (interface{}, bool, error) {
		if i >= count {
			return nil, false, nil
		}
		row := gen(i)
		i++
		return row, true, nil
	})
}

// ProviderOf turns data into a DataProvider. A DataProvider is returned as is,
// channels and slices are wrapped.
func ProviderOf(data interface{}) (DataProvider, error) {
	switch d := data.(type) {
	case nil:
		return nil, nil
	case DataProvider:
		return d, nil
	case <-chan interface{}:
		return NewChannelDataProvider(d), nil
	case chan interface{}:
		return NewChannelDataProvider(d), nil
	}
	return NewSliceDataProvider(data)
}

// ContextDataProvider stops a provider once its context is done. The context
// error is then reported by Err.
type ContextDataProvider struct {
	DataProvider
	ctx context.Context
	err error
}

// NewContextDataProvider wraps p so that iteration ends when ctx is cancelled.
func NewContextDataProvider(ctx context.Context, p DataProvider) *ContextDataProvider {
	return &ContextDataProvider{DataProvider: p, ctx: ctx}
}

func (p *ContextDataProvider) Next() bool {
	if err := p.ctx.Err(); err != nil {
		p.err = err
		return false
	}
	return p.DataProvider.Next()
}

func (p *ContextDataProvider) Err() error {
	if p.err != nil {
		return p.err
	}
	return p.DataProvider.Err()
}

// WithContext wraps the data provider of every sheet in doc.
func (d *Document) WithContext(ctx context.Context) {
	for i := range d.Sheets {
		if d.Sheets[i].Data != nil {
			d.Sheets[i].Data = NewContextDataProvider(ctx, d.Sheets[i].Data)
		}
	}
}

// PeekDataProvider has already read its first row, so columns can be derived
// from it before rendering starts.
type PeekDataProvider struct {
	DataProvider
	pending bool
}

// Peek advances p to its first row and returns a provider that yields that
// row again, together with the row. The row is nil when p is empty.
func Peek(p DataProvider) (*PeekDataProvider, interface{}) {
	pp := &PeekDataProvider{DataProvider: p}
	if !p.Next() {
		return pp, nil
	}
	pp.pending = true
	return pp, p.Row()
}

func (p *PeekDataProvider) Next() bool {
	if p.pending {
		p.pending = false
		return true
	}
	return p.DataProvider.Next()
}
