// Package grovedb wires node/merk/proof/query/reference/chunk into a single
// embeddable database: the top-level handle, its Options, and
// the error taxonomy. It is the only package that imports every
// other package in this module, and the only one that implements the
// reference.ElementStore / query.Engine interfaces concretely, over a
// merk.Cache.
package grovedb

import (
	"github.com/dashpay/grovedb-go/khash"
	"github.com/dashpay/grovedb-go/log"
	"github.com/dashpay/grovedb-go/metrics"
	"github.com/dashpay/grovedb-go/storage"
)

// GroveDb is the top-level handle: one Store, a logger, a metrics
// registry, and the default Options new transactions inherit.
type GroveDb struct {
	store   storage.Store
	hasher  khash.Hasher
	opts    Options
	logger  *log.Logger
	metrics *metrics.Registry
}

// Open binds a GroveDb to store. hasher is the cryptographic
// hash every subtree in this database is parametric over; a nil
// hasher defaults to khash.Keccak256.
func Open(store storage.Store, hasher khash.Hasher, opts Options) *GroveDb {
	if hasher == nil {
		hasher = khash.Keccak256
	}
	return &GroveDb{
		store:   store,
		hasher:  hasher,
		opts:    opts,
		logger:  log.Default().Component("grovedb"),
		metrics: metrics.NewRegistry(),
	}
}

// Options returns the GroveDb's configured Options.
func (db *GroveDb) Options() Options { return db.opts }

// Metrics returns the Prometheus registry an embedder can mount behind its
// own /metrics handler.
func (db *GroveDb) Metrics() *metrics.Registry { return db.metrics }

// Begin opens a new Transaction: a fresh merk.Cache over db's Store plus a
// storage.CostBatch collecting every queued write.
func (db *GroveDb) Begin() *Transaction {
	return newTransaction(db)
}

// WithTransaction runs fn against a fresh Transaction, committing on a nil
// return and rolling back otherwise — the one-shot convenience ergonomics
// for callers that don't need to span several operations in one
// transaction.
func (db *GroveDb) WithTransaction(fn func(tx *Transaction) error) error {
	tx := db.Begin()
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	_, err := tx.Commit()
	return err
}
