package storage

import (
	"fmt"
	"time"

	"github.com/annel0/terrain-editor/internal/alphamap"
	"github.com/annel0/terrain-editor/internal/texture"
	"github.com/annel0/terrain-editor/internal/textureset"
	"github.com/annel0/terrain-editor/internal/vec"
)

// LayerRecord слой чанка в записи хранилища
type LayerRecord struct {
	Texture string `json:"texture"`
	Flags   uint32 `json:"flags"`
	Effect  uint32 `json:"effect,omitempty"`
}

// ChunkRecord набор текстур чанка. Плоскости явных слоёв хранятся
// в «большой» альфе, сжатой RLE.
type ChunkRecord struct {
	Coords  vec.Vec2      `json:"coords"`
	Layers  []LayerRecord `json:"layers"`
	Planes  [][]byte      `json:"planes"`
	SavedAt time.Time     `json:"saved_at"`
}

// SnapshotInfo описывает сохранённую версию чанка
type SnapshotInfo struct {
	ID        string    `json:"id"`
	Coords    vec.Vec2  `json:"coords"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type snapshotRecord struct {
	SnapshotInfo
	Chunk ChunkRecord `json:"chunk"`
}

// NewChunkRecord снимает состояние набора текстур
func NewChunkRecord(coords vec.Vec2, ts *textureset.TextureSet) ChunkRecord {
	layers := ts.Layers()
	rec := ChunkRecord{
		Coords:  coords,
		Layers:  make([]LayerRecord, len(layers)),
		Planes:  ts.CompressedPlanes(),
		SavedAt: time.Now().UTC(),
	}
	for k, l := range layers {
		flags := l.Flags &^ (textureset.FlagAlphaMap | textureset.FlagCompressed)
		if k > 0 {
			flags |= textureset.FlagAlphaMap | textureset.FlagCompressed
		}
		rec.Layers[k] = LayerRecord{
			Texture: l.Texture.Filename(),
			Flags:   uint32(flags),
			Effect:  l.Effect,
		}
	}
	return rec
}

// Apply заполняет ts из записи. cache может быть nil.
func (r *ChunkRecord) Apply(ts *textureset.TextureSet, cache *texture.Cache) error {
	if len(r.Planes) != max(len(r.Layers)-1, 0) {
		return fmt.Errorf("chunk %d,%d: %d layers with %d planes", r.Coords.X, r.Coords.Y, len(r.Layers), len(r.Planes))
	}

	layers := make([]textureset.LayerData, len(r.Layers))
	for k, l := range r.Layers {
		layers[k] = textureset.LayerData{
			Flags:  textureset.Flags(l.Flags),
			Effect: l.Effect,
		}
		if k > 0 {
			p, _, err := alphamap.Decompress(r.Planes[k-1])
			if err != nil {
				return fmt.Errorf("chunk %d,%d layer %d: %w", r.Coords.X, r.Coords.Y, k, err)
			}
			layers[k].Alpha = &p
		}
	}

	for k, l := range r.Layers {
		if cache != nil {
			layers[k].Texture = cache.Acquire(l.Texture)
		} else {
			layers[k].Texture = texture.NewHandle(l.Texture)
		}
	}

	ts.Init(layers, true)

	if cache != nil {
		for _, l := range layers {
			cache.Release(l.Texture)
		}
	}
	return nil
}
