package reports

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionreport/internal/shared/storage/object/local"
)

func newTestService(t *testing.T, withArchive bool) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := OpenFileStore(filepath.Join(dir, "reports.json"))
	require.NoError(t, err)
	svc := &Service{Store: store}
	if withArchive {
		svc.Archive = local.New(filepath.Join(dir, "archive"))
	}
	return svc, dir
}

func writePDF(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o644))
	return path
}

func TestServiceListNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, false)
	store := svc.Store.(*FileStore)
	clock := t0
	store.now = func() time.Time { clock = clock.Add(time.Minute); return clock }

	a, err := svc.Record(ctx, Report{UserID: "u1", Title: "a"})
	require.NoError(t, err)
	b, err := svc.Record(ctx, Report{UserID: "u1", Title: "b"})
	require.NoError(t, err)
	_, err = svc.Record(ctx, Report{UserID: "u2", Title: "c"})
	require.NoError(t, err)

	list, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, a.ID}, ids(list))

	_, err = svc.List(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestServiceOwnershipChecks(t *testing.T) {
	ctx := context.Background()
	svc, dir := newTestService(t, false)
	pdf := writePDF(t, dir, "r.pdf")

	r, err := svc.Record(ctx, Report{UserID: "owner", PDFPath: pdf})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "intruder", r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "intruder", r.ID), ErrNotFound)
	_, statErr := os.Stat(pdf)
	assert.NoError(t, statErr, "foreign delete must not touch the pdf")

	require.NoError(t, svc.Delete(ctx, "owner", r.ID))
	_, statErr = os.Stat(pdf)
	assert.True(t, os.IsNotExist(statErr))
	_, err = svc.Get(ctx, "owner", r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceDeleteToleratesMissingPDF(t *testing.T) {
	ctx := context.Background()
	svc, dir := newTestService(t, false)
	r, err := svc.Record(ctx, Report{UserID: "u1", PDFPath: filepath.Join(dir, "gone.pdf")})
	require.NoError(t, err)
	assert.NoError(t, svc.Delete(ctx, "u1", r.ID))
}

func TestServiceArchivesAndFallsBack(t *testing.T) {
	ctx := context.Background()
	svc, dir := newTestService(t, true)
	pdf := writePDF(t, dir, "r.pdf")

	r, err := svc.Record(ctx, Report{UserID: "u1", PDFPath: pdf, Filename: "r.pdf"})
	require.NoError(t, err)

	archived := filepath.Join(dir, "archive", filepath.FromSlash(ArchiveKey(r)))
	_, err = os.Stat(archived)
	require.NoError(t, err)

	require.NoError(t, os.Remove(pdf))
	_, rc, err := svc.OpenPDF(ctx, "u1", r.ID)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(body))
}

func TestServiceOpenPDFWithoutArchive(t *testing.T) {
	ctx := context.Background()
	svc, dir := newTestService(t, false)
	r, err := svc.Record(ctx, Report{UserID: "u1", PDFPath: filepath.Join(dir, "gone.pdf")})
	require.NoError(t, err)
	_, _, err = svc.OpenPDF(ctx, "u1", r.ID)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
