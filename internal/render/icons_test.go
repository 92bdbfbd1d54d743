package render

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeIcon(t *testing.T, base, theme string, size int, name string, c color.RGBA) {
	t.Helper()
	dir := filepath.Join(base, theme, "32x32", "apps")
	require.NoError(t, os.MkdirAll(dir, 0755))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	f, err := os.Create(filepath.Join(dir, name+".png"))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

var (
	red  = color.RGBA{255, 0, 0, 255}
	blue = color.RGBA{0, 0, 255, 255}
)

func TestThemeResolverFindsHicolor(t *testing.T) {
	base := t.TempDir()
	writeIcon(t, base, "hicolor", 32, "firefox", red)

	r := &ThemeResolver{Dirs: []string{base}}
	img, err := r.Resolve("firefox", 32)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 32), img.Bounds())

	r32, _, _, _ := img.At(5, 5).RGBA()
	assert.Equal(t, uint32(0xffff), r32)
}

func TestThemeResolverPrefersTheme(t *testing.T) {
	base := t.TempDir()
	writeIcon(t, base, "hicolor", 32, "foot", red)
	writeIcon(t, base, "Papirus", 32, "foot", blue)

	img, err := (&ThemeResolver{Theme: "Papirus", Dirs: []string{base}}).Resolve("foot", 32)
	require.NoError(t, err)
	_, _, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), b)
}

func TestThemeResolverLowercaseAndScale(t *testing.T) {
	base := t.TempDir()
	// a 32x32 directory holding an oversized file still yields the requested size
	writeIcon(t, base, "hicolor", 64, "firefox", red)

	img, err := (&ThemeResolver{Dirs: []string{base}}).Resolve("Firefox", 32)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())
}

func TestThemeResolverNotFound(t *testing.T) {
	r := &ThemeResolver{Dirs: []string{t.TempDir()}}

	_, err := r.Resolve("missing", 32)
	assert.ErrorIs(t, err, ErrIconNotFound)

	_, err = r.Resolve("../etc/passwd", 32)
	assert.ErrorIs(t, err, ErrIconNotFound)

	_, err = r.Resolve("", 32)
	assert.ErrorIs(t, err, ErrIconNotFound)
}

func TestThemeResolverCorruptFile(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "hicolor", "32x32", "apps")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0644))

	_, err := (&ThemeResolver{Dirs: []string{base}}).Resolve("broken", 32)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrIconNotFound)
}

func TestIconDirsHonoursXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data/home")
	t.Setenv("XDG_DATA_DIRS", "/a:/b")

	dirs := IconDirs()
	assert.Contains(t, dirs, "/data/home/icons")
	assert.Equal(t, []string{"/a/icons", "/b/icons"}, dirs[len(dirs)-2:])
}
