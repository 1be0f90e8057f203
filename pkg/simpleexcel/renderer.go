package simpleexcel

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
)

// Render writes doc as an XLSX package to w. The sheets' data providers are
// consumed and closed. Any failure is returned as a *WriteError; output
// already written to w is not rolled back.
func Render(doc *Document, w io.Writer, opts ...Option) error {
	cfg := applyOptions(opts)
	return asWriteError(render(doc, w, &cfg))
}

// RenderFile renders doc into a new file at path. The file is closed on every
// exit path.
func RenderFile(doc *Document, path string, opts ...Option) (err error) {
	f, err := os.Create(path)
	if err != nil {
		if doc != nil {
			err = multierr.Append(err, closeProviders(doc.Sheets))
		}
		return asWriteError(fmt.Errorf("create output: %w", err))
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = asWriteError(multierr.Append(err, fmt.Errorf("close output: %w", cerr)))
		}
	}()
	return Render(doc, f, opts...)
}

func render(doc *Document, w io.Writer, cfg *Config) (err error) {
	if doc == nil {
		return errors.New("nil document")
	}
	if err := doc.Validate(); err != nil {
		return multierr.Append(err, closeProviders(doc.Sheets))
	}

	engine, err := cfg.Engine(cfg)
	if err != nil {
		return multierr.Append(fmt.Errorf("create engine: %w", err), closeProviders(doc.Sheets))
	}
	defer multierr.AppendInvoke(&err, multierr.Close(engine))

	cache := NewStyleCache(engine, cfg.MaxStyles, cfg.DateFormat, cfg.DateTimeFormat)
	resolver := NewResolver(doc)

	for i := range doc.Sheets {
		if err := renderSheet(&doc.Sheets[i], engine, cache, resolver, cfg); err != nil {
			return multierr.Append(err, closeProviders(doc.Sheets[i+1:]))
		}
	}

	if err := engine.WriteTo(w); err != nil {
		return fmt.Errorf("write document: %w", err)
	}

	cfg.Logger.Debug().
		Int("sheets", len(doc.Sheets)).
		Int("styles", cache.Len()).
		Int("fonts", cache.FontCount()).
		Msg("document rendered")
	return nil
}

func renderSheet(sheet *Sheet, engine Engine, cache *StyleCache, resolver *Resolver, cfg *Config) (err error) {
	if sheet.Data != nil {
		defer func() {
			if cerr := sheet.Data.Close(); cerr != nil {
				err = multierr.Append(err, writeError(sheet.Name, -1, fmt.Errorf("close data: %w", cerr)))
			}
		}()
	}

	out, err := engine.NewSheet(sheet.Name, sheet.layout())
	if err != nil {
		return writeError(sheet.Name, -1, fmt.Errorf("create sheet: %w", err))
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			err = multierr.Append(err, writeError(sheet.Name, -1, fmt.Errorf("close sheet: %w", cerr)))
		}
	}()

	return newSheetRenderer(sheet, out, cache, resolver, cfg).render()
}

func closeProviders(sheets []Sheet) error {
	var err error
	for i := range sheets {
		if sheets[i].Data != nil {
			multierr.AppendInvoke(&err, multierr.Close(sheets[i].Data))
		}
	}
	return err
}
