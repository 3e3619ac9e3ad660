// Copyright (C) 2023 Gobalsky Labs Limited
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package store persists checkpoints of the engine state in leveldb.
// A checkpoint replaces the previous one atomically.
package store

import (
	"bytes"
	"fmt"

	"github.com/xmargin/xmargin/logging"
	"github.com/xmargin/xmargin/positions"
	"github.com/xmargin/xmargin/state"
	"github.com/xmargin/xmargin/types"
	"github.com/xmargin/xmargin/version"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	ErrNoCheckpoint = errors.New("no checkpoint in store")
	ErrHashMismatch = errors.New("checkpoint hash mismatch")
	ErrIncompatible = errors.New("checkpoint written by an incompatible version")
)

var (
	recordPrefix  = []byte("rec/")
	accountPrefix = []byte("acc/")
	hashKey       = []byte("meta/hash")
	versionKey    = []byte("meta/version")
)

type Store struct {
	Config
	log   *logging.Logger
	db    *leveldb.DB
	cache *lru.Cache[types.AccountID, []byte]

	// version stamped on checkpoints
	version string
}

func New(log *logging.Logger, c Config) (*Store, error) {
	return open(log, c, &opt.Options{Filter: filter.NewBloomFilter(10)})
}

// OpenReadOnly opens an existing database for inspection. It fails when
// there is no database at path.
func OpenReadOnly(log *logging.Logger, path string) (*Store, error) {
	c := NewDefaultConfig()
	c.Path = path
	return open(log, c, &opt.Options{
		Filter:         filter.NewBloomFilter(10),
		ErrorIfMissing: true,
		ReadOnly:       true,
	})
}

func open(log *logging.Logger, c Config, opts *opt.Options) (*Store, error) {
	log = log.Named(namedLogger)
	log.SetLevel(c.Level.Get())

	var (
		db  *leveldb.DB
		err error
	)
	if c.Path == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), opts)
	} else {
		db, err = leveldb.OpenFile(c.Path, opts)
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not open the state database")
	}

	size := c.CacheSize
	if size <= 0 {
		size = 1
	}
	cache, err := lru.New[types.AccountID, []byte](size)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		Config:  c,
		log:     log,
		db:      db,
		cache:   cache,
		version: version.Get(),
	}, nil
}

// OpenInMemory returns a store that never touches the disk.
func OpenInMemory(log *logging.Logger) (*Store, error) {
	c := NewDefaultConfig()
	c.Path = ""
	return New(log, c)
}

func (s *Store) ReloadConf(cfg Config) {
	s.log.Info("reloading configuration")
	if s.log.GetLevel() != cfg.Level.Get() {
		s.log.Info("updating log level",
			logging.String("old", s.log.GetLevel().String()),
			logging.String("new", cfg.Level.String()),
		)
		s.log.SetLevel(cfg.Level.Get())
	}
	// path and cache size only apply on the next start
	s.Config.Level = cfg.Level
	s.Config.Sync = cfg.Sync
}

func (s *Store) Close() error {
	return s.db.Close()
}

func recordKey(i int) []byte {
	return []byte(fmt.Sprintf("%s%08d", recordPrefix, i))
}

func accountKey(id types.AccountID) []byte {
	return append(append([]byte{}, accountPrefix...), id[:]...)
}

// SaveState writes a checkpoint of st and returns its hash.
func (s *Store) SaveState(st *state.State) ([]byte, error) {
	recs, err := st.Records()
	if err != nil {
		return nil, errors.Wrap(err, "encoding state")
	}
	hash, err := st.Hash()
	if err != nil {
		return nil, err
	}

	batch := new(leveldb.Batch)
	for _, prefix := range [][]byte{recordPrefix, accountPrefix} {
		it := s.db.NewIterator(util.BytesPrefix(prefix), nil)
		for it.Next() {
			batch.Delete(append([]byte{}, it.Key()...))
		}
		it.Release()
		if err := it.Error(); err != nil {
			return nil, errors.Wrap(err, "listing previous checkpoint")
		}
	}

	accounts := map[types.AccountID][]byte{}
	for i, rec := range recs {
		batch.Put(recordKey(i), rec)
		if kind, _ := state.PeekKind(rec); kind == state.KindAccount {
			a, err := state.DecodeAccount(rec)
			if err != nil {
				return nil, err
			}
			batch.Put(accountKey(a.ID), rec)
			accounts[a.ID] = rec
		}
	}
	batch.Put(hashKey, hash)
	batch.Put(versionKey, []byte(s.version))

	if err := s.db.Write(batch, &opt.WriteOptions{Sync: bool(s.Sync)}); err != nil {
		s.log.Error("unable to write checkpoint", logging.Error(err))
		return nil, errors.Wrap(err, "writing checkpoint")
	}

	s.cache.Purge()
	for id, rec := range accounts {
		s.cache.Add(id, rec)
	}
	s.log.Debug("checkpoint saved",
		logging.Int("records", len(recs)),
		logging.String("hash", fmt.Sprintf("%x", hash)),
	)
	return hash, nil
}

// LoadState rebuilds the state of the last checkpoint and verifies its
// hash. Checkpoints of an incompatible binary version are refused.
func (s *Store) LoadState() (*state.State, error) {
	want, err := s.Hash()
	if err != nil {
		return nil, err
	}
	written, err := s.Version()
	if err != nil {
		return nil, err
	}
	if err := version.Compatible(written); err != nil {
		return nil, errors.Wrap(ErrIncompatible, err.Error())
	}

	recs := [][]byte{}
	it := s.db.NewIterator(util.BytesPrefix(recordPrefix), nil)
	for it.Next() {
		recs = append(recs, append([]byte{}, it.Value()...))
	}
	it.Release()
	if err := it.Error(); err != nil {
		return nil, errors.Wrap(err, "reading checkpoint")
	}

	st, err := state.FromRecords(recs)
	if err != nil {
		return nil, err
	}
	got, err := st.Hash()
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(want, got) {
		return nil, errors.Wrapf(ErrHashMismatch, "stored %x, computed %x", want, got)
	}
	return st, nil
}

// Hash returns the hash of the last checkpoint.
func (s *Store) Hash() ([]byte, error) {
	h, err := s.db.Get(hashKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNoCheckpoint
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading checkpoint hash")
	}
	return h, nil
}

// Version returns the version of the binary that wrote the last
// checkpoint.
func (s *Store) Version() (string, error) {
	v, err := s.db.Get(versionKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return "", ErrNoCheckpoint
	}
	if err != nil {
		return "", errors.Wrap(err, "reading checkpoint version")
	}
	return string(v), nil
}

// LoadAccount reads a single account of the last checkpoint.
func (s *Store) LoadAccount(id types.AccountID) (*positions.Account, error) {
	if rec, ok := s.cache.Get(id); ok {
		return state.DecodeAccount(rec)
	}
	rec, err := s.db.Get(accountKey(id), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, types.ErrAccountNotFound.WithAccount(id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading account")
	}
	s.cache.Add(id, rec)
	return state.DecodeAccount(rec)
}
