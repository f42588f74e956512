package pricebook

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	scanBucketName  = "scans"
	priceBucketName = "prices"
)

// DB defines the interface for database operations
type DB interface {
	// SaveScan saves a scan to the database
	SaveScan(scan *Scan) error

	// GetScan retrieves a scan by ID
	GetScan(id string) (*Scan, error)

	// ListScans returns all scans
	ListScans() ([]*Scan, error)

	// DeleteScan removes a scan from the database
	DeleteScan(id string) error

	// SavePrice saves a price record under its product key
	SavePrice(record *PriceRecord) error

	// ListPrices returns every price recorded for a product key
	ListPrices(productKey string) ([]*PriceRecord, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB. Price records live in one
// nested bucket per product key inside the prices bucket.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(scanBucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(priceBucketName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveScan saves a scan to the database
func (b *BoltDB) SaveScan(scan *Scan) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scanBucketName))
		data, err := json.Marshal(scan)
		if err != nil {
			return fmt.Errorf("marshaling scan: %w", err)
		}
		return bucket.Put([]byte(scan.ID), data)
	})
}

// GetScan retrieves a scan by ID
func (b *BoltDB) GetScan(id string) (*Scan, error) {
	var scan *Scan
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scanBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("scan %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &scan)
	})
	if err != nil {
		return nil, err
	}
	return scan, nil
}

// ListScans returns all scans
func (b *BoltDB) ListScans() ([]*Scan, error) {
	scans := make([]*Scan, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scanBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var scan Scan
			if err := json.Unmarshal(v, &scan); err != nil {
				return fmt.Errorf("unmarshaling scan: %w", err)
			}
			scans = append(scans, &scan)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return scans, nil
}

// DeleteScan removes a scan from the database
func (b *BoltDB) DeleteScan(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scanBucketName))
		return bucket.Delete([]byte(id))
	})
}

// SavePrice saves a price record under its product key
func (b *BoltDB) SavePrice(record *PriceRecord) error {
	if record.ProductKey == "" {
		return fmt.Errorf("price record %s has no product key", record.ID)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		product, err := tx.Bucket([]byte(priceBucketName)).CreateBucketIfNotExists([]byte(record.ProductKey))
		if err != nil {
			return fmt.Errorf("creating product bucket: %w", err)
		}
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshaling price record: %w", err)
		}
		return product.Put([]byte(record.ID), data)
	})
}

// ListPrices returns every price recorded for a product key
func (b *BoltDB) ListPrices(productKey string) ([]*PriceRecord, error) {
	records := make([]*PriceRecord, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		product := tx.Bucket([]byte(priceBucketName)).Bucket([]byte(productKey))
		if product == nil {
			return nil
		}
		return product.ForEach(func(k, v []byte) error {
			var record PriceRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("unmarshaling price record: %w", err)
			}
			records = append(records, &record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
