package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/ftrvxmtrx/tga"
)

// FileLoader читает текстуры из каталога Root. Имена BLP заменяются на
// одноимённые PNG/TGA/JPG, экспортированные рядом (BLP декодер не поставляется).
type FileLoader struct {
	Root string
}

var fallbackExts = []string{".png", ".tga", ".jpg"}

// Load находит файл текстуры и декодирует его в NRGBA
func (l FileLoader) Load(name string) (*image.NRGBA, error) {
	base := filepath.Join(l.Root, filepath.FromSlash(name))

	candidates := []string{base}
	if ext := strings.ToLower(filepath.Ext(base)); ext == ".blp" || ext == "" {
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		candidates = candidates[:0]
		for _, e := range fallbackExts {
			candidates = append(candidates, stem+e)
		}
	}

	for _, path := range candidates {
		raw, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("texture: read %s: %w", path, err)
		}

		img, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("texture: decode %s: %w", path, err)
		}
		return toNRGBA(img), nil
	}

	return nil, fmt.Errorf("texture: %s: %w", name, os.ErrNotExist)
}

// toNRGBA converts any image to NRGBA format.
func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
