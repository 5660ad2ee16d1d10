package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/annel0/terrain-editor/internal/logging"
	"github.com/annel0/terrain-editor/internal/texture"
	"github.com/annel0/terrain-editor/internal/textureset"
	"github.com/annel0/terrain-editor/internal/vec"
	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// ErrNotFound в хранилище нет записи для чанка или снимка
var ErrNotFound = errors.New("storage: not found")

const (
	chunkPrefix   = "texset:"
	historyPrefix = "history:"
)

// TextureStore хранит наборы текстур чанков в BadgerDB.
// Записи: JSON, сжатый zstd. История версий хранится под ключами history:x:y:<uuid>.
type TextureStore struct {
	db           *badger.DB
	dbPath       string
	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
	logger       *logging.Logger
	mutex        sync.RWMutex
	isReady      bool
}

// NewTextureStore открывает хранилище в каталоге dataPath/textures
func NewTextureStore(dataPath string) (*TextureStore, error) {
	dbPath := filepath.Join(dataPath, "textures")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	compressor, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	decompressor, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}

	return &TextureStore{
		db:           db,
		dbPath:       dbPath,
		compressor:   compressor,
		decompressor: decompressor,
		logger:       logging.GetStorageLogger(),
		isReady:      true,
	}, nil
}

// Close закрывает хранилище
func (s *TextureStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isReady {
		return nil
	}

	s.isReady = false
	s.decompressor.Close()
	s.compressor.Close()
	return s.db.Close()
}

func chunkKey(c vec.Vec2) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", chunkPrefix, c.X, c.Y))
}

func historyPrefixFor(c vec.Vec2) string {
	return fmt.Sprintf("%s%d:%d:", historyPrefix, c.X, c.Y)
}

func (s *TextureStore) encode(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации: %w", err)
	}
	return s.compressor.EncodeAll(data, nil), nil
}

func (s *TextureStore) decode(data []byte, v interface{}) error {
	raw, err := s.decompressor.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("zstd: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("ошибка десериализации: %w", err)
	}
	return nil
}

func (s *TextureStore) ready() error {
	if !s.isReady {
		return fmt.Errorf("хранилище не готово")
	}
	return nil
}

// get читает значение ключа; ErrNotFound при отсутствии
func (s *TextureStore) get(key []byte, v interface{}) error {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	return s.decode(data, v)
}

// SaveRecord сохраняет готовую запись чанка
func (s *TextureStore) SaveRecord(rec ChunkRecord) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if err := s.ready(); err != nil {
		return err
	}

	data, err := s.encode(rec)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chunkKey(rec.Coords), data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	s.logger.Debug("saved chunk %d,%d: %d layers, %d bytes", rec.Coords.X, rec.Coords.Y, len(rec.Layers), len(data))
	return nil
}

// Save сохраняет набор текстур чанка
func (s *TextureStore) Save(coords vec.Vec2, ts *textureset.TextureSet) error {
	return s.SaveRecord(NewChunkRecord(coords, ts))
}

// LoadRecord читает запись чанка
func (s *TextureStore) LoadRecord(coords vec.Vec2) (*ChunkRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if err := s.ready(); err != nil {
		return nil, err
	}

	var rec ChunkRecord
	if err := s.get(chunkKey(coords), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Load заполняет ts сохранённым набором чанка
func (s *TextureStore) Load(coords vec.Vec2, ts *textureset.TextureSet, cache *texture.Cache) error {
	rec, err := s.LoadRecord(coords)
	if err != nil {
		return err
	}
	return rec.Apply(ts, cache)
}

// Has сообщает, есть ли запись для чанка
func (s *TextureStore) Has(coords vec.Vec2) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return false
	}

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(chunkKey(coords))
		return err
	})
	return err == nil
}

// List возвращает координаты всех сохранённых чанков
func (s *TextureStore) List() ([]vec.Vec2, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if err := s.ready(); err != nil {
		return nil, err
	}

	var out []vec.Vec2
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(chunkPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := strings.TrimPrefix(string(it.Item().Key()), chunkPrefix)
			var c vec.Vec2
			if _, err := fmt.Sscanf(key, "%d:%d", &c.X, &c.Y); err != nil {
				s.logger.Warn("Ошибка парсинга ключа '%s': %v", key, err)
				continue
			}
			out = append(out, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out, nil
}

// Delete удаляет запись чанка вместе с историей
func (s *TextureStore) Delete(coords vec.Vec2) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if err := s.ready(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(chunkKey(coords)); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(historyPrefixFor(coords))
		it := txn.NewIterator(opts)
		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Snapshot сохраняет текущую запись чанка в историю и возвращает id снимка
func (s *TextureStore) Snapshot(coords vec.Vec2, note string) (string, error) {
	rec, err := s.LoadRecord(coords)
	if err != nil {
		return "", err
	}

	snap := snapshotRecord{
		SnapshotInfo: SnapshotInfo{
			ID:        uuid.NewString(),
			Coords:    coords,
			Note:      note,
			CreatedAt: time.Now().UTC(),
		},
		Chunk: *rec,
	}

	data, err := s.encode(snap)
	if err != nil {
		return "", err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(historyPrefixFor(coords)+snap.ID), data)
	})
	if err != nil {
		return "", fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return snap.ID, nil
}

// Snapshots возвращает историю чанка от старых снимков к новым
func (s *TextureStore) Snapshots(coords vec.Vec2) ([]SnapshotInfo, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if err := s.ready(); err != nil {
		return nil, err
	}

	var out []SnapshotInfo
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(historyPrefixFor(coords))

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var snap snapshotRecord
			if err := s.decode(data, &snap); err != nil {
				return err
			}
			out = append(out, snap.SnapshotInfo)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Restore делает снимок id текущей записью чанка
func (s *TextureStore) Restore(coords vec.Vec2, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("snapshot id %q: %w", id, ErrNotFound)
	}

	s.mutex.RLock()
	var snap snapshotRecord
	err := s.get([]byte(historyPrefixFor(coords)+id), &snap)
	s.mutex.RUnlock()
	if err != nil {
		return err
	}

	snap.Chunk.SavedAt = time.Now().UTC()
	return s.SaveRecord(snap.Chunk)
}

// Compact запускает сборку мусора в логе значений BadgerDB
func (s *TextureStore) Compact() (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if err := s.ready(); err != nil {
		return 0, err
	}

	runs := 0
	for {
		err := s.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			return runs, nil
		}
		if err != nil {
			return runs, err
		}
		runs++
	}
}
