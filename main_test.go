package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRemovesOnFailure(t *testing.T) {
	dir := t.TempDir()

	ok := filepath.Join(dir, "ok.xlsx")
	f, done, err := create(ok)
	require.NoError(t, err)
	_, err = f.WriteString("PK")
	require.NoError(t, err)
	require.NoError(t, done(nil))
	assert.FileExists(t, ok)

	bad := filepath.Join(dir, "bad.xlsx")
	_, done, err = create(bad)
	require.NoError(t, err)
	assert.EqualError(t, done(errors.New("render failed")), "render failed")
	_, err = os.Stat(bad)
	assert.True(t, os.IsNotExist(err))
}

func TestDump(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, dump(&buf, []map[string]string{{"id": "e1"}}))
	assert.JSONEq(t, `[{"id":"e1"}]`, buf.String())
}
