package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/annel0/terrain-editor/internal/app"
	"github.com/annel0/terrain-editor/internal/auth"
	"github.com/annel0/terrain-editor/internal/brush"
	"github.com/annel0/terrain-editor/internal/chunkio"
	"github.com/annel0/terrain-editor/internal/config"
	"github.com/annel0/terrain-editor/internal/logging"
	"github.com/annel0/terrain-editor/internal/preview"
	"github.com/annel0/terrain-editor/internal/texture"
	"github.com/annel0/terrain-editor/internal/textureset"
	"github.com/annel0/terrain-editor/internal/vec"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config path (defaults to TERRAIN_CONFIG)")
		command    = flag.String("cmd", "info", "Command: generate, paint, info, export, import, compact, snapshot, snapshots, restore, token, secret")
		chunkX     = flag.Int("cx", 0, "Chunk X")
		chunkY     = flag.Int("cy", 0, "Chunk Y")
		size       = flag.Int("size", 1, "Square side in chunks for generate")
		posX       = flag.Float64("x", 0, "World X of the stroke start")
		posZ       = flag.Float64("z", 0, "World Z of the stroke start")
		toX        = flag.Float64("to-x", 0, "World X of the stroke end")
		toZ        = flag.Float64("to-z", 0, "World Z of the stroke end")
		spacing    = flag.Float64("spacing", 0, "Distance between dabs (0 = brush radius / 4)")
		tex        = flag.String("texture", "", "Texture filename")
		radius     = flag.Float64("radius", 0, "Brush radius (0 = config)")
		hardness   = flag.Float64("hardness", -1, "Brush hardness (-1 = config)")
		format     = flag.String("format", "", "Export format: compressed, big, legacy, webp, png")
		out        = flag.String("out", "", "Output file")
		in         = flag.String("in", "", "Input chunk file for import")
		snapshotID = flag.String("id", "", "Snapshot ID for restore")
		note       = flag.String("note", "", "Snapshot note")
		editorName = flag.String("editor", "", "Editor name for token")
		readOnly   = flag.Bool("read-only", false, "Issue a token without write access")
		ttl        = flag.Duration("ttl", 24*time.Hour, "Token lifetime")
		verbose    = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	level := logging.WARN
	if *verbose {
		level = logging.DEBUG
	}
	logging.GetLoggerManager().SetFactory(func(component string) (*logging.Logger, error) {
		return logging.NewWriterLogger(component, os.Stderr, level), nil
	})
	logging.SetDefaultLogger(logging.NewWriterLogger("texpaint", os.Stderr, level))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// команды токенов не открывают хранилище
	switch *command {
	case "secret":
		fmt.Println(auth.GenerateSecret())
		return
	case "token":
		if err := issueToken(cfg, *editorName, !*readOnly, *ttl); err != nil {
			log.Fatalf("❌ token failed: %v", err)
		}
		return
	}

	editor, err := app.NewEditor(cfg, prometheus.NewRegistry())
	if err != nil {
		log.Fatalf("❌ Failed to open editor: %v", err)
	}
	defer editor.Close()

	coords := vec.Vec2{X: *chunkX, Y: *chunkY}

	switch *command {
	case "generate":
		err = generate(editor, coords, *size)

	case "paint":
		err = paint(editor, &PaintOptions{
			From:     vec.Vec2Float{X: *posX, Y: *posZ},
			To:       vec.Vec2Float{X: *toX, Y: *toZ},
			Spacing:  *spacing,
			Texture:  *tex,
			Radius:   *radius,
			Hardness: *hardness,
			Note:     *note,
		})

	case "info":
		err = info(editor, coords)

	case "export":
		err = export(editor, coords, *format, *out)

	case "import":
		err = importChunk(editor, coords, *in)

	case "compact":
		err = compact(editor)

	case "snapshot":
		var id string
		id, err = editor.Store.Snapshot(coords, *note)
		if err == nil {
			fmt.Printf("📸 Snapshot %s of chunk %d,%d\n", id, coords.X, coords.Y)
		}

	case "snapshots":
		err = listSnapshots(editor, coords)

	case "restore":
		err = editor.Store.Restore(coords, *snapshotID)
		if err == nil {
			fmt.Printf("⏪ Chunk %d,%d restored from %s\n", coords.X, coords.Y, *snapshotID)
		}

	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: generate, paint, info, export, import, compact, snapshot, snapshots, restore, token, secret")
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("❌ %s failed: %v", *command, err)
	}
}

type PaintOptions struct {
	From     vec.Vec2Float
	To       vec.Vec2Float
	Spacing  float64
	Texture  string
	Radius   float64
	Hardness float64
	Note     string
}

// generate создаёт квадрат size x size чанков, начиная с origin, и сохраняет новые
func generate(ed *app.Editor, origin vec.Vec2, size int) error {
	if size < 1 {
		return fmt.Errorf("size must be positive, got %d", size)
	}
	last := origin.Add(vec.Vec2{X: size - 1, Y: size - 1})
	if err := ed.EnsureArea(origin, last); err != nil {
		return err
	}
	saved, err := ed.SaveDirty(false, "")
	if err != nil {
		return err
	}
	fmt.Printf("🌱 Generated %d chunks (%d already stored)\n", len(saved), size*size-len(saved))
	return nil
}

// paint проводит мазок от From до To, подгружая все задетые чанки
func paint(ed *app.Editor, opts *PaintOptions) error {
	if opts.Texture == "" {
		return fmt.Errorf("texture is required")
	}

	r := ed.Config.Brush.Radius
	if opts.Radius > 0 {
		r = opts.Radius
	}
	h := ed.Config.Brush.Hardness
	if opts.Hardness >= 0 {
		h = opts.Hardness
	}
	b := brush.NewFalloff(r, h)

	if opts.To == (vec.Vec2Float{}) {
		opts.To = opts.From
	}
	spacing := opts.Spacing
	if spacing <= 0 {
		spacing = r / 4
	}

	// все чанки, которые может задеть кисть вдоль отрезка
	lo := vec.Vec2Float{X: min(opts.From.X, opts.To.X) - r, Y: min(opts.From.Y, opts.To.Y) - r}
	hi := vec.Vec2Float{X: max(opts.From.X, opts.To.X) + r, Y: max(opts.From.Y, opts.To.Y) + r}
	if err := ed.EnsureArea(lo.ChunkOf(textureset.ChunkSize), hi.ChunkOf(textureset.ChunkSize)); err != nil {
		return err
	}
	// сгенерированные соседи сохраняются вместе с мазком
	start := time.Now()
	changed := ed.Map.Stroke(opts.From, opts.To, spacing, b, ed.Config.Brush.Strength, ed.Config.Brush.Pressure, texture.NewHandle(opts.Texture))

	saved, err := ed.SaveDirty(opts.Note != "", opts.Note)
	if err != nil {
		return err
	}
	fmt.Printf("🖌️  Painted %s: %d chunks changed, %d saved in %v\n", opts.Texture, len(changed), len(saved), time.Since(start))
	return nil
}

// info выводит слои чанка
func info(ed *app.Editor, coords vec.Vec2) error {
	c, err := ed.EnsureChunk(coords)
	if err != nil {
		return err
	}
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	tile, local := coords.ToTileCoords(), coords.LocalInTile()
	fmt.Printf("📦 Chunk %d,%d (tile %d,%d, local %d,%d): %d layers (stored: %v)\n",
		coords.X, coords.Y, tile.X, tile.Y, local.X, local.Y, c.Textures.NumLayers(), ed.Store.Has(coords))
	for k := 0; k < c.Textures.NumLayers(); k++ {
		p, _ := c.Textures.Plane(k)
		var sum int
		for _, v := range p {
			sum += int(v)
		}
		fmt.Printf("  [%d] %-40s flags=0x%03x effect=%d coverage=%.1f%%\n",
			k, c.Textures.Filename(k), uint32(c.Textures.Flag(k)), c.Textures.Effect(k),
			float64(sum)*100/float64(len(p)*255))
	}
	return nil
}

// export пишет чанк как файл слоёв или как превью
func export(ed *app.Editor, coords vec.Vec2, format, out string) error {
	if out == "" {
		return fmt.Errorf("out is required")
	}
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(out), ".")
	}

	c, err := ed.EnsureChunk(coords)
	if err != nil {
		return err
	}
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	var buf bytes.Buffer
	switch format {
	case "webp", "png":
		img := preview.Scale(preview.Compose(c.Textures, ed.Cache), ed.Config.Preview.Scale)
		if err := preview.Encode(&buf, img, format); err != nil {
			return err
		}
	default:
		f, err := chunkio.ParseFormat(format)
		if err != nil {
			return err
		}
		if _, err := chunkio.NewFile(c.Textures, f).WriteTo(&buf); err != nil {
			return err
		}
	}

	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return err
	}
	fmt.Printf("💾 Chunk %d,%d exported to %s (%s, %d bytes)\n", coords.X, coords.Y, out, format, buf.Len())
	return nil
}

// importChunk читает файл слоёв и сохраняет его как чанк coords
func importChunk(ed *app.Editor, coords vec.Vec2, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	f, err := chunkio.ReadFile(data)
	if err != nil {
		logging.LogChunkIOError(coords.X, coords.Y, err, data)
		return err
	}

	c, _ := ed.Map.AddChunk(coords)
	c.Mu.Lock()
	err = f.Decode(c.Textures, ed.Cache, ed.Config.Editor.DoNotFixAlpha)
	c.ChangeCounter++
	c.Mu.Unlock()
	if err != nil {
		logging.LogChunkIOError(coords.X, coords.Y, err, data)
		return err
	}

	if _, err := ed.SaveDirty(ed.Store.Has(coords), "import "+filepath.Base(path)); err != nil {
		return err
	}
	fmt.Printf("📥 Imported %s into chunk %d,%d (%d layers)\n", path, coords.X, coords.Y, c.Textures.NumLayers())
	return nil
}

// compact сливает дубликаты, убирает невидимые слои и чистит лог значений
func compact(ed *app.Editor) error {
	n, err := ed.LoadAll()
	if err != nil {
		return err
	}
	merged := ed.Map.RemoveDuplicates()
	erased := ed.Map.EraseUnused()
	saved, err := ed.SaveDirty(false, "")
	if err != nil {
		return err
	}
	gc, err := ed.Store.Compact()
	if err != nil {
		return err
	}
	fmt.Printf("🧹 %d chunks: %d deduplicated, %d trimmed, %d saved, %d value log files rewritten\n",
		n, merged, erased, len(saved), gc)
	return nil
}

func listSnapshots(ed *app.Editor, coords vec.Vec2) error {
	snaps, err := ed.Store.Snapshots(coords)
	if err != nil {
		return err
	}
	fmt.Printf("📚 %d snapshots of chunk %d,%d\n", len(snaps), coords.X, coords.Y)
	for _, s := range snaps {
		fmt.Printf("  %s  %s  %s\n", s.ID, s.CreatedAt.Format(time.RFC3339), s.Note)
	}
	return nil
}

// issueToken печатает JWT токен для HTTP API
func issueToken(cfg *config.Config, editor string, canWrite bool, ttl time.Duration) error {
	if editor == "" {
		return fmt.Errorf("editor is required")
	}
	secret := cfg.Server.GetJWTSecret()
	if secret == "" {
		return fmt.Errorf("server.jwt_secret is not configured")
	}
	signer, err := auth.NewSigner(secret)
	if err != nil {
		return err
	}
	token, err := signer.Issue(editor, canWrite, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
