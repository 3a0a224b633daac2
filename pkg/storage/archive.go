package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/YallaPapi/pubscrape-sub007/pkg/log"
	"github.com/YallaPapi/pubscrape-sub007/pkg/models"
	"github.com/YallaPapi/pubscrape-sub007/pkg/utils"
)

const (
	sessionKeyPrefix = "session:" // Prefix for archived CrawlSession keys
	reportKeyPrefix  = "report:"  // Prefix for archived SessionReport keys
	archiveDBDir     = "session_archive"
)

// ErrNotFound is returned when no archived record exists for a session id
var ErrNotFound = errors.New("session not found in archive")

// SessionArchive persists finished crawl sessions and their reports for
// downstream export. The engine itself never reads the archive; it is a
// write-mostly sink callers may consult later.
type SessionArchive interface {
	SaveSession(session *models.CrawlSession, report *models.SessionReport) error
	GetSession(sessionID string) (*models.CrawlSession, error)
	GetReport(sessionID string) (*models.SessionReport, error)
	ListSessionIDs() ([]string, error)
	RunGC(ctx context.Context, interval time.Duration)
	Close() error
}

// BadgerArchive implements SessionArchive on BadgerDB. One database holds
// all domains, keyed by session id.
type BadgerArchive struct {
	db  *badger.DB
	log *logrus.Entry
}

// NewBadgerArchive opens (or creates) the archive database under stateDir
func NewBadgerArchive(stateDir string, logger *logrus.Entry) (*BadgerArchive, error) {
	dbPath := filepath.Join(stateDir, archiveDBDir)
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("cannot create state directory %s: %w", dbPath, err)
	}

	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions(dbPath).
		WithLogger(badgerLogger).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", dbPath, err)
	}
	logger.WithField("path", dbPath).Info("Session archive opened")
	return &BadgerArchive{db: db, log: logger}, nil
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction
// conflicts. Concurrent MVCC transactions on overlapping keys can return
// badger.ErrConflict; these resolve in microseconds.
func (a *BadgerArchive) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := 0; i < maxConflictRetries; i++ {
		err := a.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		a.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// SaveSession archives a finished session and its report in one transaction.
// A nil report archives the session alone.
func (a *BadgerArchive) SaveSession(session *models.CrawlSession, report *models.SessionReport) error {
	if session == nil {
		return errors.New("cannot archive a nil session")
	}

	sessionBytes, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("%w: marshaling session %s: %w", utils.ErrParsing, session.SessionID, err)
	}
	var reportBytes []byte
	if report != nil {
		reportBytes, err = json.Marshal(report)
		if err != nil {
			return fmt.Errorf("%w: marshaling report %s: %w", utils.ErrParsing, session.SessionID, err)
		}
	}

	err = a.dbUpdate(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(sessionKeyPrefix+session.SessionID), sessionBytes); err != nil {
			return err
		}
		if reportBytes != nil {
			return txn.Set([]byte(reportKeyPrefix+session.SessionID), reportBytes)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: archiving session %s: %w", utils.ErrDatabase, session.SessionID, err)
	}

	a.log.WithFields(logrus.Fields{
		"session_id": session.SessionID,
		"domain":     session.Domain,
		"status":     session.Status,
	}).Debug("Session archived")
	return nil
}

// GetSession loads an archived session by id
func (a *BadgerArchive) GetSession(sessionID string) (*models.CrawlSession, error) {
	var session models.CrawlSession
	if err := a.getJSON(sessionKeyPrefix+sessionID, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetReport loads an archived session report by id
func (a *BadgerArchive) GetReport(sessionID string) (*models.SessionReport, error) {
	var report models.SessionReport
	if err := a.getJSON(reportKeyPrefix+sessionID, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (a *BadgerArchive) getJSON(key string, out any) error {
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: getting key %q: %w", utils.ErrDatabase, key, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	return err
}

// ListSessionIDs returns the ids of all archived sessions
func (a *BadgerArchive) ListSessionIDs() ([]string, error) {
	var ids []string
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(sessionKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			ids = append(ids, string(key[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing sessions: %w", utils.ErrDatabase, err)
	}
	return ids, nil
}

// RunGC runs periodic value-log garbage collection until the context is
// cancelled. Run it in its own goroutine.
func (a *BadgerArchive) RunGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if a.db == nil || a.db.IsClosed() {
				continue
			}
			var err error
			// Loop until GC reports nothing left to rewrite
			for {
				err = a.db.RunValueLogGC(0.5)
				if err != nil {
					break
				}
			}
			if !errors.Is(err, badger.ErrNoRewrite) {
				a.log.Errorf("BadgerDB GC error: %v", err)
			}
		case <-ctx.Done():
			a.log.Debugf("Stopping archive GC: %v", ctx.Err())
			return
		}
	}
}

// Close cleanly closes the archive database
func (a *BadgerArchive) Close() error {
	if a.db != nil && !a.db.IsClosed() {
		if err := a.db.Close(); err != nil {
			a.log.Errorf("Error closing session archive: %v", err)
			return err
		}
		a.log.Info("Session archive closed")
	}
	return nil
}
