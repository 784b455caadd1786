package boltdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/datasync/internal/client/storage"
	"github.com/iudanet/datasync/internal/crypto"
)

var (
	// BoltDB bucket names
	bucketDatasets = []byte("datasets")
	bucketSettings = []byte("settings")

	// Вложенные buckets внутри bucket датасета
	bucketRecords = []byte("records")
	bucketPending = []byte("pending")
	bucketMeta    = []byte("meta")

	keySalt  = []byte("salt")
	keyCheck = []byte("check")
)

// checkValue шифруется при создании хранилища и позволяет проверить пароль
var checkValue = []byte("datasync")

var errUnencryptedData = errors.New("storage already contains unencrypted data")

// Storage represents BoltDB storage implementation for client.
// Layout: datasets/<dataset>/{records,pending,meta}; settings holds the
// encryption salt when values are sealed.
type Storage struct {
	db     *bbolt.DB
	sealer *crypto.Sealer
	closed atomic.Bool
}

type options struct {
	passphrase  string
	openTimeout time.Duration
}

// Option configures the BoltDB storage
type Option func(*options)

// WithPassphrase enables AES-GCM encryption of stored values with a key
// derived from passphrase. A file created with a passphrase can only be
// opened with the same passphrase.
func WithPassphrase(passphrase string) Option {
	return func(o *options) {
		o.passphrase = passphrase
	}
}

// WithOpenTimeout limits how long New waits for the file lock held by
// another process.
func WithOpenTimeout(d time.Duration) Option {
	return func(o *options) {
		o.openTimeout = d
	}
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string, opts ...Option) (*Storage, error) {
	o := options{openTimeout: time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	// Открываем BoltDB
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: o.openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{db: db}

	// Инициализируем buckets
	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	if err := s.initEncryption(o.passphrase); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Encrypted reports whether stored values are sealed
func (s *Storage) Encrypted() bool {
	return s.sealer != nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketDatasets); err != nil {
			return fmt.Errorf("failed to create datasets bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists(bucketSettings); err != nil {
			return fmt.Errorf("failed to create settings bucket: %w", err)
		}
		return nil
	})
}

// initEncryption creates or verifies the encryption settings of the file.
func (s *Storage) initEncryption(passphrase string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		settings := tx.Bucket(bucketSettings)
		salt := settings.Get(keySalt)

		if salt == nil {
			if passphrase == "" {
				return nil
			}
			// Нельзя включить шифрование поверх уже сохраненных открытых данных
			if k, _ := tx.Bucket(bucketDatasets).Cursor().First(); k != nil {
				return errUnencryptedData
			}

			newSalt, err := crypto.GenerateSalt()
			if err != nil {
				return err
			}
			sealer, err := newSealer(passphrase, newSalt)
			if err != nil {
				return err
			}
			check, err := sealer.Seal(checkValue, keyCheck)
			if err != nil {
				return fmt.Errorf("failed to seal check value: %w", err)
			}
			if err := settings.Put(keySalt, newSalt); err != nil {
				return fmt.Errorf("failed to save salt: %w", err)
			}
			if err := settings.Put(keyCheck, check); err != nil {
				return fmt.Errorf("failed to save check value: %w", err)
			}
			s.sealer = sealer
			return nil
		}

		if passphrase == "" {
			return storage.ErrPassphraseRequired
		}
		sealer, err := newSealer(passphrase, salt)
		if err != nil {
			return err
		}
		if _, err := sealer.Open(settings.Get(keyCheck), keyCheck); err != nil {
			return storage.ErrWrongPassphrase
		}
		s.sealer = sealer
		return nil
	})
}

func newSealer(passphrase string, salt []byte) (*crypto.Sealer, error) {
	key, err := crypto.DeriveStorageKey(passphrase, salt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive storage key: %w", err)
	}
	return crypto.NewSealer(key)
}

// encode сериализует значение в JSON и шифрует его, если шифрование включено
func (s *Storage) encode(v any, ad []byte) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}
	if s.sealer == nil {
		return raw, nil
	}
	return s.sealer.Seal(raw, ad)
}

func (s *Storage) decode(raw, ad []byte, v any) error {
	if s.sealer != nil {
		var err error
		if raw, err = s.sealer.Open(raw, ad); err != nil {
			return err
		}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return nil
}

// valueAD привязывает зашифрованное значение к его месту в файле
func valueAD(dataset string, bucket, key []byte) []byte {
	ad := make([]byte, 0, len(dataset)+len(bucket)+len(key)+2)
	ad = append(ad, dataset...)
	ad = append(ad, '/')
	ad = append(ad, bucket...)
	ad = append(ad, '/')
	ad = append(ad, key...)
	return ad
}

// readBucket returns the nested bucket of a dataset or nil if it doesn't exist yet.
func readBucket(tx *bbolt.Tx, dataset string, name []byte) *bbolt.Bucket {
	ds := tx.Bucket(bucketDatasets).Bucket([]byte(dataset))
	if ds == nil {
		return nil
	}
	return ds.Bucket(name)
}

// writeBucket returns the nested bucket of a dataset, creating it if needed.
func writeBucket(tx *bbolt.Tx, dataset string, name []byte) (*bbolt.Bucket, error) {
	ds, err := tx.Bucket(bucketDatasets).CreateBucketIfNotExists([]byte(dataset))
	if err != nil {
		return nil, fmt.Errorf("failed to create dataset bucket: %w", err)
	}
	b, err := ds.CreateBucketIfNotExists(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s bucket: %w", name, err)
	}
	return b, nil
}

// ClearDataset removes records, pending changes and metadata of a dataset
func (s *Storage) ClearDataset(ctx context.Context, dataset string) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketDatasets)
		if root.Bucket([]byte(dataset)) == nil {
			return nil
		}
		if err := root.DeleteBucket([]byte(dataset)); err != nil {
			return fmt.Errorf("failed to delete dataset bucket: %w", err)
		}
		return nil
	})
}

// Datasets returns the names of datasets that have persisted state
func (s *Storage) Datasets(ctx context.Context) ([]string, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}

	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDatasets).ForEachBucket(func(k []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	return names, nil
}

var _ storage.Backend = (*Storage)(nil)
