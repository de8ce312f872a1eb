package artifacts

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref(path string, ms int64) FileRef {
	return FileRef{Path: path, ModTime: time.UnixMilli(ms)}
}

func TestFindBestMatch(t *testing.T) {
	tests := []struct {
		name       string
		candidates []FileRef
		reference  int64
		want       string
		wantOK     bool
	}{
		{name: "empty", candidates: nil, reference: 100, wantOK: false},
		{
			name:       "latest prior wins over closer future",
			candidates: []FileRef{ref("old", 10), ref("prior", 90), ref("future", 101)},
			reference:  100,
			want:       "prior",
			wantOK:     true,
		},
		{
			name:       "exact match counts as prior",
			candidates: []FileRef{ref("a", 50), ref("exact", 100)},
			reference:  100,
			want:       "exact",
			wantOK:     true,
		},
		{
			name:       "all future falls back to nearest",
			candidates: []FileRef{ref("far", 500), ref("near", 130), ref("mid", 200)},
			reference:  100,
			want:       "near",
			wantOK:     true,
		},
		{
			name:       "prior tie keeps first",
			candidates: []FileRef{ref("first", 80), ref("second", 80)},
			reference:  100,
			want:       "first",
			wantOK:     true,
		},
		{
			name:       "nearest tie keeps first",
			candidates: []FileRef{ref("first", 150), ref("second", 150)},
			reference:  100,
			want:       "first",
			wantOK:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindBestMatch(tt.candidates, time.UnixMilli(tt.reference))
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got.Path)
			}
		})
	}
}

func TestFindBestMatchProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 500; iter++ {
		n := rng.Intn(8)
		candidates := make([]FileRef, n)
		for i := range candidates {
			candidates[i] = ref(filepath.Join("c", string(rune('a'+i))), rng.Int63n(1000))
		}
		reference := rng.Int63n(1000)

		got, ok := FindBestMatch(candidates, time.UnixMilli(reference))
		if n == 0 {
			require.False(t, ok)
			continue
		}
		require.True(t, ok)
		require.Contains(t, candidates, got)

		var maxPrior int64 = -1
		minDiff := int64(1 << 62)
		for _, c := range candidates {
			mt := c.ModTime.UnixMilli()
			if mt <= reference && mt > maxPrior {
				maxPrior = mt
			}
			if d := absDiff(mt, reference); d < minDiff {
				minDiff = d
			}
		}
		if maxPrior >= 0 {
			require.Equal(t, maxPrior, got.ModTime.UnixMilli())
		} else {
			require.Equal(t, minDiff, absDiff(got.ModTime.UnixMilli(), reference))
		}
	}
}

func TestScanDirAndLatest(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	write := func(name string, offset time.Duration) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(name), 0o644))
		require.NoError(t, os.Chtimes(p, base.Add(offset), base.Add(offset)))
		return p
	}
	write("a.png", 0)
	newest := write("b.JPG", 2*time.Minute)
	write("notes.txt", 5*time.Minute)
	write(".hidden.png", 10*time.Minute)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o755))

	images, err := ScanDir(dir, ImageFilter)
	require.NoError(t, err)
	assert.Len(t, images, 2)

	got, ok := Latest(images)
	require.True(t, ok)
	assert.Equal(t, newest, got.Path)

	all, err := ScanDir(dir, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	missing, err := ScanDir(filepath.Join(dir, "nope"), ImageFilter)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestStatSkipsMissing(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "x.png")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	refs := Stat([]string{p, filepath.Join(dir, "gone.png")})
	require.Len(t, refs, 1)
	assert.Equal(t, p, refs[0].Path)
}
