package content

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"

	"github.com/annel0/mmo-sim/internal/logging"
)

const mapKeyPrefix = "map:"

// Store хранит описания карт в BadgerDB. Значения - YAML, сжатый zstd.
type Store struct {
	db      *badger.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	mu      sync.RWMutex
	closed  bool
}

// OpenStore открывает хранилище. Пустой путь - хранилище в памяти.
func OpenStore(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}

	return &Store{db: db, encoder: enc, decoder: dec}, nil
}

// Close закрывает хранилище
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.encoder.Close()
	s.decoder.Close()
	return s.db.Close()
}

// Put сохраняет карту под ее именем
func (s *Store) Put(def *MapDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	raw, err := def.Marshal()
	if err != nil {
		return fmt.Errorf("сериализация карты %s: %w", def.Name, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New("хранилище закрыто")
	}
	packed := s.encoder.EncodeAll(raw, nil)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(mapKeyPrefix+def.Name), packed)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	logging.GetComponentLogger("content").Debug("Карта %s сохранена (%d -> %d байт)", def.Name, len(raw), len(packed))
	return nil
}

// Get загружает карту по имени
func (s *Store) Get(name string) (*MapDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errors.New("хранилище закрыто")
	}

	var packed []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(mapKeyPrefix + name))
		if err != nil {
			return err
		}
		packed, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMapNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("чтение карты %s: %w", name, err)
	}

	raw, err := s.decoder.DecodeAll(packed, nil)
	if err != nil {
		return nil, fmt.Errorf("распаковка карты %s: %w", name, err)
	}
	return Parse(raw)
}

// List возвращает имена сохраненных карт по алфавиту
func (s *Store) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errors.New("хранилище закрыто")
	}

	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(mapKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), mapKeyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Delete удаляет карту
func (s *Store) Delete(name string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New("хранилище закрыто")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(mapKeyPrefix + name)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrMapNotFound, name)
			}
			return err
		}
		return txn.Delete([]byte(mapKeyPrefix + name))
	})
}
