// Package firestoredb keeps photo records in a Cloud Firestore collection
// and streams query snapshots to subscribers.
package firestoredb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"geosnap/internal/model"
)

const DefaultCollection = "photos"

var (
	ErrInvalidImage = errors.New("record must carry exactly one image representation")
	ErrMixedImages  = errors.New("image representation does not match the deployment")
)

type ClientOptions struct {
	ProjectID       string
	CredentialsFile string
}

// NewClient connects to Firestore. FIRESTORE_EMULATOR_HOST is honoured by
// the client library.
func NewClient(ctx context.Context, o ClientOptions) (*firestore.Client, error) {
	if o.ProjectID == "" {
		return nil, errors.New("missing --project")
	}
	var opts []option.ClientOption
	if o.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(o.CredentialsFile))
	}
	return firestore.NewClient(ctx, o.ProjectID, opts...)
}

type Store struct {
	client     *firestore.Client
	collection string
	// inline is the deployment's representation; records using the other
	// one are rejected.
	inline bool
	logger *slog.Logger
	now    func() time.Time
}

func New(client *firestore.Client, collection string, inline bool, logger *slog.Logger) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{
		client:     client,
		collection: collection,
		inline:     inline,
		logger:     logger.With("component", "firestore", "collection", collection),
		now:        time.Now,
	}
}

// Add writes rec with a server-assigned timestamp.
func (s *Store) Add(ctx context.Context, rec model.NewRecord) (model.PhotoRecord, error) {
	if !rec.Image.Valid() {
		return model.PhotoRecord{}, ErrInvalidImage
	}
	if (rec.Image.InlineBase64 != "") != s.inline {
		return model.PhotoRecord{}, ErrMixedImages
	}

	ref, wr, err := s.client.Collection(s.collection).Add(ctx, newDocument(rec))
	if err != nil {
		return model.PhotoRecord{}, fmt.Errorf("add photo: %w", err)
	}
	return model.PhotoRecord{
		ID:          ref.ID,
		Image:       rec.Image,
		Coordinates: rec.Coordinates,
		CreatedAt:   wr.UpdateTime.UTC(),
	}, nil
}

func (s *Store) query(q model.Query) firestore.Query {
	dir := firestore.Asc
	if q.NewestFirst {
		dir = firestore.Desc
	}
	fq := s.client.Collection(s.collection).Query
	if q.Since > 0 {
		fq = fq.Where(fieldTimestamp, ">=", s.now().Add(-q.Since))
	}
	return fq.OrderBy(fieldTimestamp, dir)
}

// List reads the current result set of q once.
func (s *Store) List(ctx context.Context, q model.Query) ([]model.PhotoRecord, error) {
	return collect(s.query(q).Documents(ctx))
}

// Subscribe streams snapshots of q to fn until the returned function is
// called. The unsubscribe function is idempotent and fn is never invoked
// after it returns; it must not be called from inside fn.
func (s *Store) Subscribe(ctx context.Context, q model.Query, fn func(model.Snapshot)) (func(), error) {
	sctx, cancel := context.WithCancel(ctx)
	it := s.query(q).Snapshots(sctx)

	var (
		mu     sync.Mutex
		closed bool
		done   = make(chan struct{})
	)

	go func() {
		defer close(done)
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if sctx.Err() == nil {
					s.logger.Warn("snapshot listener stopped", "err", err)
				}
				return
			}
			records, err := collect(qs.Documents)
			if err != nil {
				s.logger.Warn("snapshot decode failed", "err", err)
				continue
			}

			mu.Lock()
			if !closed {
				fn(model.Snapshot{Records: records, ReadAt: qs.ReadTime})
			}
			mu.Unlock()
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			mu.Lock()
			closed = true
			mu.Unlock()
			cancel()
			<-done
		})
	}, nil
}

func collect(docs *firestore.DocumentIterator) ([]model.PhotoRecord, error) {
	defer docs.Stop()
	out := []model.PhotoRecord{}
	for {
		snap, err := docs.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		var d document
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode %s: %w", snap.Ref.ID, err)
		}
		out = append(out, d.record(snap.Ref.ID))
	}
}
