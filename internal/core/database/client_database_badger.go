package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/markdave123-py/Dossier/internal/core"
	"github.com/markdave123-py/Dossier/internal/models"
)

const (
	docKeyPrefix   = "doc:"
	chunkKeyPrefix = "chunk:"
)

func docKey(id string) []byte {
	return []byte(docKeyPrefix + id)
}

// chunkPrefix ends in a NUL so "a" never matches chunks of "a/b".
func chunkPrefix(docID string) []byte {
	return []byte(chunkKeyPrefix + docID + "\x00")
}

// chunkKey zero-pads order so prefix iteration yields chunks in order.
func chunkKey(docID string, order int) []byte {
	return append(chunkPrefix(docID), fmt.Sprintf("%010d", order)...)
}

var _ core.DocumentStore = (*BadgerStore)(nil)

// BadgerStore is an embedded document store. A write is a single Badger
// transaction, so a batch larger than the transaction limit fails whole.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// badgerLogger adapts slog to badger.Logger.
type badgerLogger struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (bl *badgerLogger) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLogger) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLogger) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLogger) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBadger opens a store at dir, creating it if needed. An empty dir opens
// an in-memory store.
func OpenBadger(dir string, logger *slog.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("store", "badger")

	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		} else if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", dir)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db, logger: logger, now: time.Now}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// WriteDocument replaces the document's chunk set and merges the parent in
// one transaction. The stored Analysis is carried over.
func (s *BadgerStore) WriteDocument(ctx context.Context, doc models.ParentDocument, chunks []string) (*models.WriteResult, error) {
	if err := validateDocument(doc, chunks); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := newBatch(doc, chunks, s.now().UTC(), s.newID)

	err := s.db.Update(func(txn *badger.Txn) error {
		prev, err := readDocument(txn, b.doc.ID)
		switch {
		case err == nil:
			b.doc.Analysis = prev.Analysis
		case errors.Is(err, core.ErrNotFound):
			b.doc.Analysis = ""
		default:
			return err
		}

		if err := deletePrefix(txn, chunkPrefix(b.doc.ID)); err != nil {
			return err
		}
		for _, ch := range b.chunks {
			val, err := json.Marshal(ch)
			if err != nil {
				return err
			}
			if err := txn.Set(chunkKey(ch.DocumentID, ch.Order), val); err != nil {
				return err
			}
		}

		val, err := json.Marshal(b.doc)
		if err != nil {
			return err
		}
		return txn.Set(docKey(b.doc.ID), val)
	})
	if err != nil {
		return nil, persistenceFailed("badger txn", err)
	}

	s.logger.Debug("document written", "document_id", b.doc.ID, "chunks", b.doc.ChunkCount)
	return b.result(), nil
}

func (s *BadgerStore) GetDocument(_ context.Context, documentID string) (*models.ParentDocument, error) {
	var doc *models.ParentDocument
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		doc, err = readDocument(txn, documentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *BadgerStore) GetChunks(_ context.Context, documentID string) ([]models.TextChunk, error) {
	var out []models.TextChunk
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = chunkPrefix(documentID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var ch models.TextChunk
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ch)
			}); err != nil {
				return err
			}
			out = append(out, ch)
		}
		return nil
	})
	return out, err
}

func readDocument(txn *badger.Txn, id string) (*models.ParentDocument, error) {
	item, err := txn.Get(docKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("document %q: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var doc models.ParentDocument
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &doc)
	}); err != nil {
		return nil, err
	}
	return &doc, nil
}

func deletePrefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)

	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
