package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"
)

// ErrNotFound возвращается, если полезная нагрузка чанка не сохранена
var ErrNotFound = errors.New("chunk payload not found")

// ErrClosed возвращается после Close
var ErrClosed = errors.New("chunk store closed")

// ChunkKey возвращает ключ хранения полезной нагрузки чанка
func ChunkKey(dimension string, cx, cy int32) string {
	return fmt.Sprintf("chunk:%s:%d:%d", dimension, cx, cy)
}

// ChunkPrefix возвращает общий префикс ключей чанков измерения
func ChunkPrefix(dimension string) string {
	return "chunk:" + dimension + ":"
}

// ParseChunkKey разбирает ключ, построенный ChunkKey
func ParseChunkKey(key string) (dimension string, cx, cy int32, err error) {
	rest, ok := strings.CutPrefix(key, "chunk:")
	if !ok {
		return "", 0, 0, fmt.Errorf("not a chunk key: %q", key)
	}
	i := strings.IndexByte(rest, ':')
	if i < 0 {
		return "", 0, 0, fmt.Errorf("not a chunk key: %q", key)
	}
	dimension = rest[:i]
	if _, err := fmt.Sscanf(rest[i+1:], "%d:%d", &cx, &cy); err != nil {
		return "", 0, 0, fmt.Errorf("parse chunk key %q: %w", key, err)
	}
	return dimension, cx, cy, nil
}

// ChunkStore хранит сырые полезные нагрузки чанков в BadgerDB, сжатые zstd.
// Используется для тёплого старта клиента и как холодный слой кэша.
type ChunkStore struct {
	db      *badger.DB
	dbPath  string
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	mutex   sync.RWMutex
	isReady bool
}

// NewChunkStore открывает хранилище по пути dbPath
func NewChunkStore(dbPath string) (*ChunkStore, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB
	return openChunkStore(opts, dbPath)
}

// NewInMemoryChunkStore открывает хранилище без файлов на диске
func NewInMemoryChunkStore() (*ChunkStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openChunkStore(opts, "")
}

func openChunkStore(opts badger.Options, dbPath string) (*ChunkStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, err
	}

	return &ChunkStore{
		db:      db,
		dbPath:  dbPath,
		enc:     enc,
		dec:     dec,
		isReady: true,
	}, nil
}

// Close закрывает хранилище
func (s *ChunkStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isReady {
		return nil
	}
	s.isReady = false
	s.dec.Close()
	_ = s.enc.Close()
	return s.db.Close()
}

// Store сохраняет полезную нагрузку под ключом
func (s *ChunkStore) Store(ctx context.Context, key string, payload []byte) error {
	return s.BatchStore(ctx, map[string][]byte{key: payload})
}

// BatchStore сохраняет несколько записей одной пакетной записью
func (s *ChunkStore) BatchStore(ctx context.Context, items map[string][]byte) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return ErrClosed
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for key, payload := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := wb.Set([]byte(key), s.enc.EncodeAll(payload, nil)); err != nil {
			return fmt.Errorf("ошибка записи %s в BadgerDB: %w", key, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

// Load читает полезную нагрузку; ErrNotFound, если ключа нет
func (s *ChunkStore) Load(ctx context.Context, key string) ([]byte, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var compressed []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		compressed, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	payload, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("распаковка %s: %w", key, err)
	}
	return payload, nil
}

// Delete удаляет запись; отсутствие ключа не ошибка
func (s *ChunkStore) Delete(ctx context.Context, key string) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Range обходит все записи с префиксом prefix в порядке ключей.
// Ошибка из fn прекращает обход и возвращается.
func (s *ChunkStore) Range(ctx context.Context, prefix string, fn func(key string, payload []byte) error) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return ErrClosed
	}

	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			compressed, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			payload, err := s.dec.DecodeAll(compressed, nil)
			if err != nil {
				return fmt.Errorf("распаковка %s: %w", item.Key(), err)
			}
			if err := fn(string(item.KeyCopy(nil)), payload); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count возвращает число записей с префиксом
func (s *ChunkStore) Count(prefix string) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return 0, ErrClosed
	}

	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
