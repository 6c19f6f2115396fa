package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/timzifer/dashwidget/internal/errs"
)

const bucketDashboards = "dashboards"

// BoltStore keeps dashboards as JSON documents in a local bbolt file.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens or creates the database file at path.
func OpenBoltStore(path string, timeout time.Duration) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, errs.NewDatabaseError("open", "failed to open dashboard database", err)
	}
	st, err := NewBoltStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}

// NewBoltStore creates a store on an open database.
func NewBoltStore(db *bolt.DB) (*BoltStore, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketDashboards))
		return err
	})
	if err != nil {
		return nil, errs.NewDatabaseError("open", "failed to initialize dashboards bucket", err)
	}
	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Create(_ context.Context, d *Dashboard) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketDashboards))
		if b.Get([]byte(d.DashboardID)) != nil {
			return errs.NewAlreadyExistsError("dashboard already exists")
		}
		return putDashboard(b, d)
	})
	return storeError("create", "failed to create dashboard", err)
}

func (s *BoltStore) Get(_ context.Context, dashboardID string) (*Dashboard, error) {
	var d Dashboard
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketDashboards)).Get([]byte(dashboardID))
		if v == nil {
			return errs.NewNotFoundError("dashboard not found")
		}
		return json.Unmarshal(v, &d)
	})
	if err != nil {
		return nil, storeError("read", "failed to get dashboard", err)
	}
	return &d, nil
}

func (s *BoltStore) List(_ context.Context) ([]*Dashboard, error) {
	var out []*Dashboard
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketDashboards)).ForEach(func(_, v []byte) error {
			var d Dashboard
			if err := json.Unmarshal(v, &d); err != nil {
				return err
			}
			out = append(out, &d)
			return nil
		})
	})
	if err != nil {
		return nil, storeError("read", "failed to list dashboards", err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *BoltStore) Update(_ context.Context, d *Dashboard) error {
	d.UpdatedAt = time.Now().UTC()
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketDashboards))
		if b.Get([]byte(d.DashboardID)) == nil {
			return errs.NewNotFoundError("dashboard not found")
		}
		return putDashboard(b, d)
	})
	return storeError("update", "failed to update dashboard", err)
}

func (s *BoltStore) Delete(_ context.Context, dashboardID string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketDashboards))
		if b.Get([]byte(dashboardID)) == nil {
			return errs.NewNotFoundError("dashboard not found")
		}
		return b.Delete([]byte(dashboardID))
	})
	return storeError("delete", "failed to delete dashboard", err)
}

func putDashboard(b *bolt.Bucket, d *Dashboard) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return b.Put([]byte(d.DashboardID), data)
}

// storeError passes typed errors through and wraps everything else.
func storeError(operation, message string, err error) error {
	if err == nil {
		return nil
	}
	var notFound *errs.NotFoundError
	var exists *errs.AlreadyExistsError
	if errors.As(err, &notFound) || errors.As(err, &exists) {
		return err
	}
	return errs.NewDatabaseError(operation, message, err)
}
