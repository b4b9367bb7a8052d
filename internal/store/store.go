// Package store persists portal records through gorm and announces committed writes.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zeyuan/appeal-service/internal/apperr"
	"github.com/zeyuan/appeal-service/internal/realtime"
	"gorm.io/gorm"
)

// Store is the persistence collaborator for appeals, transactions, users and the knowledge base.
type Store struct {
	db  *gorm.DB
	pub realtime.Publisher

	// pending collects events inside a transaction; nil outside one.
	pending *pendingEvents
}

type pendingEvents struct {
	mu     sync.Mutex
	events []realtime.Event
}

// New constructs a Store. A nil publisher discards events.
func New(db *gorm.DB, pub realtime.Publisher) *Store {
	if pub == nil {
		pub = realtime.Discard
	}
	return &Store{db: db, pub: pub}
}

// DB returns the underlying handle, scoped to the current transaction when inside one.
func (s *Store) DB() *gorm.DB { return s.db }

// Transaction runs fn inside a database transaction. Events recorded by fn are published
// only after commit and dropped on rollback.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	if s.pending != nil {
		return fn(s)
	}
	pending := &pendingEvents{}
	errTx := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&Store{db: gtx, pub: s.pub, pending: pending})
	})
	if errTx != nil {
		return errTx
	}
	for _, evt := range pending.events {
		s.publish(ctx, evt)
	}
	return nil
}

// emit publishes immediately or defers until commit.
func (s *Store) emit(ctx context.Context, collection realtime.Collection, op realtime.Op, id, userID string) {
	evt := realtime.Event{Collection: collection, Op: op, ID: id, UserID: userID, At: time.Now().UTC()}
	if s.pending != nil {
		s.pending.mu.Lock()
		s.pending.events = append(s.pending.events, evt)
		s.pending.mu.Unlock()
		return
	}
	s.publish(ctx, evt)
}

func (s *Store) publish(ctx context.Context, evt realtime.Event) {
	if errPublish := s.pub.Publish(ctx, evt); errPublish != nil {
		log.WithError(errPublish).WithField("collection", evt.Collection).Warn("store: publish change event")
	}
}

// translate maps gorm failures onto the portal error kinds.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(what + " not found")
	}
	return apperr.Persistence(what+" write failed", err)
}

// translateRead is translate with a read-oriented message.
func translateRead(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(what + " not found")
	}
	return apperr.Persistence(what+" read failed", err)
}

// Page bounds list queries.
type Page struct {
	Limit  int // Zero means no limit.
	Offset int
}

func (p Page) apply(q *gorm.DB) *gorm.DB {
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	if p.Offset > 0 {
		q = q.Offset(p.Offset)
	}
	return q
}
