// Package firestore stores the ledger snapshot in Cloud Firestore under
// namespaces/<namespace>/collections/<name>.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"

	"expensebuddy/internal/core"
	"expensebuddy/internal/storage/document"
)

// collectionDoc is the stored shape of one snapshot collection.
type collectionDoc struct {
	Body      string    `firestore:"body"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

type Store struct {
	client    *firestore.Client
	namespace string
}

// NewClient opens a Firestore client using Application Default Credentials
// unless credentialsFile is set.
func NewClient(ctx context.Context, projectID, credentialsFile string) (*firestore.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return client, nil
}

func New(client *firestore.Client, namespace string) *Store {
	if namespace == "" {
		namespace = document.DefaultNamespace
	}
	return &Store{client: client, namespace: namespace}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) ref(name string) *firestore.DocumentRef {
	return s.client.Collection("namespaces").Doc(s.namespace).Collection("collections").Doc(name)
}

// Load reads all collection documents in one round trip.
func (s *Store) Load(ctx context.Context) (core.Snapshot, bool, error) {
	refs := make([]*firestore.DocumentRef, len(document.Collections))
	for i, name := range document.Collections {
		refs[i] = s.ref(name)
	}
	snaps, err := s.client.GetAll(ctx, refs)
	if err != nil {
		return core.Snapshot{}, false, fmt.Errorf("get documents: %w", err)
	}

	docs := map[string][]byte{}
	for i, ds := range snaps {
		if !ds.Exists() {
			continue
		}
		var d collectionDoc
		if err := ds.DataTo(&d); err != nil {
			return core.Snapshot{}, false, fmt.Errorf("decode %s: %w", document.Collections[i], err)
		}
		docs[document.Collections[i]] = []byte(d.Body)
	}
	if len(docs) == 0 {
		return core.Snapshot{}, false, nil
	}
	snap, err := document.Join(docs)
	if err != nil {
		return core.Snapshot{}, false, err
	}
	return snap, true, nil
}

// Save writes every collection document atomically.
func (s *Store) Save(ctx context.Context, snap core.Snapshot) error {
	docs, err := document.Split(snap)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	err = s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, name := range document.Collections {
			if err := tx.Set(s.ref(name), collectionDoc{Body: string(docs[name]), UpdatedAt: now}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write documents: %w", err)
	}
	return nil
}
