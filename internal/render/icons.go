package render

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

// ErrIconNotFound is returned when no icon file exists for an application
var ErrIconNotFound = errors.New("icon not found")

// IconResolver maps an application identifier to an icon image of the given size
type IconResolver interface {
	Resolve(id string, size int) (image.Image, error)
}

// ThemeResolver looks up PNG application icons in freedesktop icon theme directories
type ThemeResolver struct {
	// Theme is searched before hicolor; empty searches hicolor only
	Theme string
	// Dirs are the icon base directories, in priority order
	Dirs []string
}

// NewThemeResolver returns a resolver over the XDG icon directories
func NewThemeResolver(theme string) *ThemeResolver {
	return &ThemeResolver{
		Theme: theme,
		Dirs:  IconDirs(),
	}
}

// IconDirs returns the XDG icon base directories
func IconDirs() []string {
	var dirs []string

	dataHome := os.Getenv("XDG_DATA_HOME")
	if homeDir, err := os.UserHomeDir(); err == nil {
		if dataHome == "" {
			dataHome = filepath.Join(homeDir, ".local", "share")
		}
		dirs = append(dirs, filepath.Join(homeDir, ".icons"))
	}
	if dataHome != "" {
		dirs = append(dirs, filepath.Join(dataHome, "icons"))
	}

	dataDirs := os.Getenv("XDG_DATA_DIRS")
	if dataDirs == "" {
		dataDirs = "/usr/local/share:/usr/share"
	}
	for _, dir := range filepath.SplitList(dataDirs) {
		if dir != "" {
			dirs = append(dirs, filepath.Join(dir, "icons"))
		}
	}

	return dirs
}

func (r *ThemeResolver) themes() []string {
	if r.Theme == "" || r.Theme == "hicolor" {
		return []string{"hicolor"}
	}
	return []string{r.Theme, "hicolor"}
}

// candidates lists the files tried for id, most specific first
func (r *ThemeResolver) candidates(id string, size int) []string {
	names := []string{id}
	if lower := strings.ToLower(id); lower != id {
		names = append(names, lower)
	}

	var paths []string
	for _, theme := range r.themes() {
		for _, dir := range r.Dirs {
			for _, name := range names {
				paths = append(paths,
					filepath.Join(dir, theme, fmt.Sprintf("%dx%d", size, size), "apps", name+".png"))
			}
		}
	}
	return paths
}

// Resolve loads the icon for id and scales it to size x size
func (r *ThemeResolver) Resolve(id string, size int) (image.Image, error) {
	if id == "" || strings.ContainsRune(id, filepath.Separator) {
		return nil, fmt.Errorf("%w: invalid id %q", ErrIconNotFound, id)
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid icon size %d", size)
	}

	for _, path := range r.candidates(id, size) {
		img, err := loadPNG(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return Scale(img, size), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrIconNotFound, id)
}

func loadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode icon %s: %w", path, err)
	}
	return img, nil
}

// Scale returns img resized to size x size. Images already at that size are returned as is.
func Scale(img image.Image, size int) image.Image {
	b := img.Bounds()
	if b.Dx() == size && b.Dy() == size {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
