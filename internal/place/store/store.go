package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/snacktacular/snacktacular/backend/go-services/internal/changes"
	"github.com/snacktacular/snacktacular/backend/go-services/internal/place"
	"github.com/snacktacular/snacktacular/backend/go-services/internal/place/repository"
	"github.com/snacktacular/snacktacular/backend/go-services/pkg/logger"
	"github.com/snacktacular/snacktacular/backend/go-services/pkg/metrics"
)

var (
	ErrIndexOutOfRange = errors.New("place index out of range")
)

// Store owns the Place List and mirrors it to the places collection.
//
// The mutex only protects the in-memory list; it is never held across a
// backend call. Concurrent saves of the same record race and the backend's
// last write wins. A Load running next to a Save may or may not see it.
type Store struct {
	col       repository.Collection
	publisher changes.Publisher

	mu     sync.RWMutex
	places []place.Record
	// gen changes on every successful Load; a create finishing after a
	// reload does not write its id into the replaced list.
	gen uint64
}

type Option func(*Store)

// WithPublisher announces every successful write on p.
func WithPublisher(p changes.Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

func New(col repository.Collection, opts ...Option) *Store {
	s := &Store{col: col}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load fetches every place document and replaces the in-memory list with
// them, in backend order. On failure the current list is kept.
func (s *Store) Load(ctx context.Context) error {
	docs, err := s.col.All(ctx)
	metrics.PlaceLoads.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		logger.Errorf("places: error reading documents: %v", err)
		return fmt.Errorf("load places: %w", err)
	}
	list := make([]place.Record, 0, len(docs))
	for _, d := range docs {
		list = append(list, place.Decode(d.ID, d.Fields))
	}
	s.mu.Lock()
	s.places = list
	s.gen++
	s.mu.Unlock()
	metrics.PlaceListSize.Set(float64(len(list)))
	logger.Debugf("places: loaded %d documents", len(list))
	return nil
}

// Save persists the record at index. The posting user becomes currentUser
// when signedIn is true and place.UnknownUser otherwise. A record with a
// DocumentID overwrites that document; one without creates a new document
// and takes over the backend-assigned id. Exactly one write is issued.
func (s *Store) Save(ctx context.Context, index int, currentUser string, signedIn bool) (place.Record, error) {
	posting := postingUser(currentUser, signedIn)

	s.mu.Lock()
	if index < 0 || index >= len(s.places) {
		s.mu.Unlock()
		return place.Record{}, fmt.Errorf("save %d: %w", index, ErrIndexOutOfRange)
	}
	s.places[index].PostingUserID = posting
	rec := s.places[index]
	gen := s.gen
	s.mu.Unlock()

	return s.write(ctx, index, rec, gen)
}

// Create appends r as a new, unsaved record and saves it. Appending, stamping
// the posting user and taking the copy to write happen under one lock, so a
// reload landing before the write cannot redirect it to another record.
func (s *Store) Create(ctx context.Context, r place.Record, currentUser string, signedIn bool) (int, place.Record, error) {
	r.DocumentID = ""
	r.PostingUserID = postingUser(currentUser, signedIn)

	s.mu.Lock()
	s.places = append(s.places, r)
	index := len(s.places) - 1
	gen := s.gen
	s.mu.Unlock()
	metrics.PlaceListSize.Set(float64(index + 1))

	rec, err := s.write(ctx, index, r, gen)
	return index, rec, err
}

// Update applies edit to the record at index and saves the result in one
// step. The record keeps its DocumentID whatever edit returns.
func (s *Store) Update(ctx context.Context, index int, edit func(place.Record) place.Record, currentUser string, signedIn bool) (place.Record, error) {
	posting := postingUser(currentUser, signedIn)

	s.mu.Lock()
	if index < 0 || index >= len(s.places) {
		s.mu.Unlock()
		return place.Record{}, fmt.Errorf("update %d: %w", index, ErrIndexOutOfRange)
	}
	cur := s.places[index]
	rec := edit(cur)
	rec.DocumentID = cur.DocumentID
	rec.PostingUserID = posting
	s.places[index] = rec
	gen := s.gen
	s.mu.Unlock()

	return s.write(ctx, index, rec, gen)
}

func postingUser(currentUser string, signedIn bool) string {
	if signedIn && currentUser != "" {
		return currentUser
	}
	return place.UnknownUser
}

// write sends rec to the backend. gen is the list generation rec was taken
// from; a new id is only written back while that list is still current.
func (s *Store) write(ctx context.Context, index int, rec place.Record, gen uint64) (place.Record, error) {
	fields := place.Encode(rec)
	if rec.Persisted() {
		err := s.col.Set(ctx, rec.DocumentID, fields)
		metrics.PlaceSaves.WithLabelValues(string(changes.OpUpdate), metrics.Result(err)).Inc()
		if err != nil {
			logger.Errorf("places: error updating document %s: %v", rec.DocumentID, err)
			return rec, fmt.Errorf("update place %s: %w", rec.DocumentID, err)
		}
		logger.Infof("places: document updated id=%s", rec.DocumentID)
		s.announce(ctx, changes.OpUpdate, rec.DocumentID)
		return rec, nil
	}

	id, err := s.col.Add(ctx, fields)
	metrics.PlaceSaves.WithLabelValues(string(changes.OpCreate), metrics.Result(err)).Inc()
	if err != nil {
		logger.Errorf("places: error adding document: %v", err)
		return rec, fmt.Errorf("create place: %w", err)
	}
	rec.DocumentID = id
	s.mu.Lock()
	if s.gen == gen && index < len(s.places) && s.places[index].DocumentID == "" {
		s.places[index].DocumentID = id
	} else {
		logger.Debugf("places: list changed while creating %s; id not written back", id)
	}
	s.mu.Unlock()
	logger.Infof("places: document added id=%s", id)
	s.announce(ctx, changes.OpCreate, id)
	return rec, nil
}

func (s *Store) announce(ctx context.Context, op changes.Op, id string) {
	if s.publisher == nil {
		return
	}
	ev := changes.Event{Op: op, DocumentID: id, At: time.Now().UTC()}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		logger.Warnf("places: failed to publish %s event for %s: %v", op, id, err)
	}
}

// Add appends a locally created record and returns its index.
func (s *Store) Add(r place.Record) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.places = append(s.places, r)
	metrics.PlaceListSize.Set(float64(len(s.places)))
	return len(s.places) - 1
}

// Replace writes an edited copy back into the list at index.
func (s *Store) Replace(index int, r place.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.places) {
		return fmt.Errorf("replace %d: %w", index, ErrIndexOutOfRange)
	}
	s.places[index] = r
	return nil
}

// Get returns a copy of the record at index.
func (s *Store) Get(index int) (place.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.places) {
		return place.Record{}, fmt.Errorf("get %d: %w", index, ErrIndexOutOfRange)
	}
	return s.places[index], nil
}

// Places returns a copy of the whole list.
func (s *Store) Places() []place.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]place.Record, len(s.places))
	copy(out, s.places)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.places)
}

// Watch reloads the whole list on every notification from feed until ctx
// is done or the feed closes. Load failures are logged and the watch goes on.
func (s *Store) Watch(ctx context.Context, feed changes.Feed) error {
	ch, err := feed.Subscribe(ctx)
	if err != nil {
		logger.Errorf("places: error adding change listener: %v", err)
		return fmt.Errorf("subscribe: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ch:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return nil
			}
			_ = s.Load(ctx)
		}
	}
}
