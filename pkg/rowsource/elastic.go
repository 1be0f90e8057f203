package rowsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/maruel/natural"
	"github.com/olivere/elastic/v7"

	"github.com/locvowork/excelstream/pkg/simpleexcel"
)

// IDField is the row key holding the document id.
const IDField = "_id"

// ElasticProvider streams the hits of a search through the scroll API.
type ElasticProvider struct {
	ctx    context.Context
	scroll *elastic.ScrollService
	cfg    *config

	hits    []*elastic.SearchHit
	pos     int
	current map[string]interface{}
	fetched int64
	err     error
	done    bool
	closed  bool
}

var _ simpleexcel.DataProvider = (*ElasticProvider)(nil)

// NewElasticProvider scrolls index with query, nil matching all documents.
// Pages are fetched lazily as rows are consumed.
func NewElasticProvider(ctx context.Context, client *elastic.Client, index string, query elastic.Query, opts ...Option) *ElasticProvider {
	cfg := applyOptions(opts)
	svc := client.Scroll(index).Size(cfg.batchSize).KeepAlive(cfg.keepAlive)
	if query != nil {
		svc = svc.Query(query)
	}
	return &ElasticProvider{ctx: ctx, scroll: svc, cfg: cfg}
}

func (p *ElasticProvider) Next() bool {
	if p.closed {
		p.err = simpleexcel.ErrConsumed
		return false
	}
	for p.pos >= len(p.hits) {
		if p.done || p.err != nil || !p.fetch() {
			p.current = nil
			return false
		}
	}

	hit := p.hits[p.pos]
	p.hits[p.pos] = nil
	p.pos++

	row := make(map[string]interface{})
	if len(hit.Source) > 0 {
		if err := json.Unmarshal(hit.Source, &row); err != nil {
			p.err = fmt.Errorf("decode hit %s: %w", hit.Id, err)
			return false
		}
	}
	if p.cfg.withID {
		row[IDField] = hit.Id
	}
	p.current = row
	return true
}

func (p *ElasticProvider) fetch() bool {
	var res *elastic.SearchResult
	err := p.cfg.retry(p.ctx, isPermanent, func() error {
		var err error
		res, err = p.scroll.Do(p.ctx)
		return err
	})
	switch {
	case errors.Is(err, io.EOF):
		p.done = true
		return false
	case err != nil:
		p.err = fmt.Errorf("scroll: %w", err)
		return false
	case res == nil || res.Hits == nil || len(res.Hits.Hits) == 0:
		p.done = true
		return false
	}
	p.hits = res.Hits.Hits
	p.pos = 0
	p.fetched += int64(len(p.hits))
	return true
}

// isPermanent stops retries for the end of the scroll and client errors.
func isPermanent(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var e *elastic.Error
	if errors.As(err, &e) {
		return e.Status >= 400 && e.Status < 500 && e.Status != 429
	}
	return false
}

func (p *ElasticProvider) Row() interface{} {
	if p.current == nil {
		return nil
	}
	return p.current
}

func (p *ElasticProvider) Err() error { return p.err }

// Fetched returns the number of hits received so far.
func (p *ElasticProvider) Fetched() int64 { return p.fetched }

// Close releases the scroll context on the cluster.
func (p *ElasticProvider) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.hits, p.current = nil, nil
	return p.scroll.Clear(context.Background())
}

// FieldColumns builds columns for the given source fields, the document id
// first unless it is disabled. With no fields the keys of sample are used in
// natural order.
func FieldColumns(sample map[string]interface{}, fields ...string) []simpleexcel.Column {
	if len(fields) == 0 {
		for k := range sample {
			if k != IDField {
				fields = append(fields, k)
			}
		}
		sort.Sort(natural.StringSlice(fields))
		if _, ok := sample[IDField]; ok {
			fields = append([]string{IDField}, fields...)
		}
	}
	return simpleexcel.MapColumns(fields...)
}
