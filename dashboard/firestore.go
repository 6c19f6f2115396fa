package dashboard

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/timzifer/dashwidget/internal/errs"
)

// FirestoreStore keeps dashboards in a Firestore collection, one document per dashboard.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreClient connects to Firestore. An empty credentials file uses
// the application default credentials.
func NewFirestoreClient(ctx context.Context, projectID, credentialsFile string) (*firestore.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, errs.NewDatabaseError("connect", "failed to create firestore client", err)
	}
	return client, nil
}

// NewFirestoreStore creates a store on the given collection.
func NewFirestoreStore(client *firestore.Client, collection string) *FirestoreStore {
	if collection == "" {
		collection = "dashboards"
	}
	return &FirestoreStore{client: client, collection: collection}
}

func (s *FirestoreStore) docs() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

func (s *FirestoreStore) Create(ctx context.Context, d *Dashboard) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	_, err := s.docs().Doc(d.DashboardID).Create(ctx, d)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errs.NewAlreadyExistsError("dashboard already exists")
		}
		return errs.NewDatabaseError("create", "failed to create dashboard", err)
	}
	return nil
}

func (s *FirestoreStore) Get(ctx context.Context, dashboardID string) (*Dashboard, error) {
	doc, err := s.docs().Doc(dashboardID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errs.NewNotFoundError("dashboard not found")
		}
		return nil, errs.NewDatabaseError("read", "failed to get dashboard", err)
	}
	var d Dashboard
	if err := doc.DataTo(&d); err != nil {
		return nil, errs.NewDatabaseError("read", "failed to parse dashboard data", err)
	}
	return &d, nil
}

func (s *FirestoreStore) List(ctx context.Context) ([]*Dashboard, error) {
	it := s.docs().OrderBy("name", firestore.Asc).Documents(ctx)
	defer it.Stop()
	var out []*Dashboard
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errs.NewDatabaseError("read", "failed to list dashboards", err)
		}
		var d Dashboard
		if err := doc.DataTo(&d); err != nil {
			return nil, errs.NewDatabaseError("read", "failed to parse dashboard data", err)
		}
		out = append(out, &d)
	}
	return out, nil
}

func (s *FirestoreStore) Update(ctx context.Context, d *Dashboard) error {
	d.UpdatedAt = time.Now().UTC()
	ref := s.docs().Doc(d.DashboardID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Set(ref, d)
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errs.NewNotFoundError("dashboard not found")
		}
		return errs.NewDatabaseError("update", "failed to update dashboard", err)
	}
	return nil
}

func (s *FirestoreStore) Delete(ctx context.Context, dashboardID string) error {
	_, err := s.docs().Doc(dashboardID).Delete(ctx, firestore.Exists)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errs.NewNotFoundError("dashboard not found")
		}
		return errs.NewDatabaseError("delete", "failed to delete dashboard", err)
	}
	return nil
}
