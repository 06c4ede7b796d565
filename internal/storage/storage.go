// Package storage persists datagen run state in a BadgerDB directory given
// by the datagen state path, so an interrupted run resumes where it stopped and
// finished games are never written twice across restarts.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const (
	keyCheckpoint = "checkpoint"
	gamePrefix    = "game:"
)

// Checkpoint records how far a datagen run progressed.
type Checkpoint struct {
	GamesCompleted   int64  `json:"games_completed"`
	PositionsWritten int64  `json:"positions_written"`
	Seed             uint64 `json:"seed"`
}

// Store wraps BadgerDB for datagen run state.
type Store struct {
	db *badger.DB
}

// Open creates or opens the store directory.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open datagen store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadCheckpoint returns the stored checkpoint, if any.
func (s *Store) LoadCheckpoint() (Checkpoint, bool, error) {
	var cp Checkpoint
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyCheckpoint))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &cp); err != nil {
				return err
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("load checkpoint: %w", err)
	}
	return cp, found, nil
}

// SaveCheckpoint persists the run progress.
func (s *Store) SaveCheckpoint(cp Checkpoint) error {
	buf, err := json.Marshal(cp)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyCheckpoint), buf)
	})
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// MarkGame records a game's rolling hash. Returns true when the hash was
// already present, meaning the game was written by an earlier run.
func (s *Store) MarkGame(hash uint64) (bool, error) {
	key := make([]byte, len(gamePrefix)+8)
	copy(key, gamePrefix)
	binary.LittleEndian.PutUint64(key[len(gamePrefix):], hash)

	seen := false
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			seen = true
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, nil)
	})
	if err != nil {
		return false, fmt.Errorf("mark game: %w", err)
	}
	return seen, nil
}
