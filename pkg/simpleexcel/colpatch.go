package simpleexcel

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	zip "github.com/hidez8891/zip"
)

// The stream writer emits <cols> before <sheetData>, so widths learned during
// the data pass are spliced in while the finished package is copied.

const maxSheetPrefix = 1 << 20

var sheetDataTag = []byte("<sheetData")

// injectColumnWidths copies the package in src to dst, adding a <cols>
// element to every sheet listed in widths.
func injectColumnWidths(dst io.Writer, src io.ReaderAt, size int64, widths map[string]map[int]float64) error {
	zr, err := zip.NewReader(src, size)
	if err != nil {
		return fmt.Errorf("open package: %w", err)
	}
	paths, err := sheetPaths(zr)
	if err != nil {
		return err
	}

	patches := make(map[string]map[int]float64, len(widths))
	for name, cols := range widths {
		p, ok := paths[name]
		if !ok {
			return fmt.Errorf("sheet %q not found in package", name)
		}
		patches[p] = cols
	}

	zw := zip.NewWriter(dst)
	for _, f := range zr.File {
		cols, ok := patches[f.Name]
		if !ok {
			f.Flags &= ^zip.FlagDataDescriptor
			if err := zw.CopyFile(f); err != nil {
				return fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}
		if err := patchSheet(zw, f, cols); err != nil {
			return fmt.Errorf("patch %s: %w", f.Name, err)
		}
	}
	return zw.Close()
}

func patchSheet(zw *zip.Writer, f *zip.File, cols map[int]float64) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     f.Name,
		Method:   zip.Deflate,
		Modified: f.Modified,
	})
	if err != nil {
		return err
	}

	// Read until the sheetData tag shows up; everything before it is small.
	var prefix bytes.Buffer
	buf := make([]byte, 32<<10)
	idx := -1
	for idx < 0 {
		n, err := rc.Read(buf)
		prefix.Write(buf[:n])
		idx = bytes.Index(prefix.Bytes(), sheetDataTag)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if prefix.Len() > maxSheetPrefix {
			return errors.New("sheetData not found")
		}
	}
	if idx < 0 {
		return errors.New("sheetData not found")
	}

	head := prefix.Bytes()
	if _, err := w.Write(head[:idx]); err != nil {
		return err
	}
	if _, err := io.WriteString(w, colsXML(cols)); err != nil {
		return err
	}
	if _, err := w.Write(head[idx:]); err != nil {
		return err
	}
	_, err = io.Copy(w, rc)
	return err
}

func colsXML(cols map[int]float64) string {
	idx := make([]int, 0, len(cols))
	for c := range cols {
		idx = append(idx, c)
	}
	sort.Ints(idx)

	var sb strings.Builder
	sb.WriteString("<cols>")
	for _, c := range idx {
		w := strconv.FormatFloat(cols[c], 'f', -1, 64)
		fmt.Fprintf(&sb, `<col min="%d" max="%d" width="%s" customWidth="1"/>`, c+1, c+1, w)
	}
	sb.WriteString("</cols>")
	return sb.String()
}

// sheetPaths maps sheet names to their part names inside the package.
func sheetPaths(zr *zip.Reader) (map[string]string, error) {
	wb, err := readPart(zr, "xl/workbook.xml")
	if err != nil {
		return nil, err
	}
	rels, err := readPart(zr, "xl/_rels/workbook.xml.rels")
	if err != nil {
		return nil, err
	}

	targets := make(map[string]string)
	for _, r := range rels.FindElements("//Relationship") {
		t := r.SelectAttrValue("Target", "")
		if strings.HasPrefix(t, "/") {
			t = strings.TrimPrefix(t, "/")
		} else {
			t = path.Join("xl", t)
		}
		targets[r.SelectAttrValue("Id", "")] = t
	}

	out := make(map[string]string)
	for _, s := range wb.FindElements("//sheets/sheet") {
		if t, ok := targets[s.SelectAttrValue("r:id", "")]; ok {
			out[s.SelectAttrValue("name", "")] = t
		}
	}
	return out, nil
}

func readPart(zr *zip.Reader, name string) (*etree.Document, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		doc := etree.NewDocument()
		if _, err := doc.ReadFrom(rc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return doc, nil
	}
	return nil, fmt.Errorf("part %s not found", name)
}
