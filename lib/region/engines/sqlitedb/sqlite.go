package sqlitedb

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dTravel/lib/region"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// ErrClosed is returned by every operation on a closed medium
var ErrClosed = errors.New("sqlitedb: medium is closed")

const schema = `
CREATE TABLE IF NOT EXISTS region_entries (
	region INTEGER NOT NULL,
	key    BLOB    NOT NULL,
	value  BLOB,
	PRIMARY KEY (region, key)
) WITHOUT ROWID`

// --------------------------------------------------------------------------
// Key Encoding
// --------------------------------------------------------------------------

// keys are stored as 8 byte big endian blobs, SQLite compares blobs with
// memcmp so ORDER BY key is the numeric order over the full uint64 range
func encodeKey(key uint64) []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, 8), key)
}

func decodeKey(raw []byte) (uint64, error) {
	if len(raw) != 8 {
		return 0, fmt.Errorf("sqlitedb: malformed key of %d bytes", len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}

// --------------------------------------------------------------------------
// Core SQLite medium structure
// --------------------------------------------------------------------------

type sqliteImpl struct {
	db      *sql.DB
	path    string
	writeMu sync.Mutex // serializes transactions
	closed  atomic.Bool
}

// dsn builds the connection string. The pragmas are applied to every pooled connection.
func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(FULL)")
	q.Add("_pragma", "busy_timeout(5000)")
	return "file:" + path + "?" + q.Encode()
}

// NewSQLiteMedium opens (or creates) the SQLite database file at path
func NewSQLiteMedium(path string) (region.IMedium, error) {
	db, err := sql.Open(driverName, dsn(path))
	if err != nil {
		return nil, fmt.Errorf("sqlitedb: cannot open %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitedb: cannot create schema in %s: %w", path, err)
	}

	return &sqliteImpl{db: db, path: path}, nil
}

// Factory returns a region.Factory opening the SQLite file at path
func Factory(path string) region.Factory {
	return func() (region.IMedium, error) {
		return NewSQLiteMedium(path)
	}
}

// --------------------------------------------------------------------------
// IMedium Interface Methods
// --------------------------------------------------------------------------

func (s *sqliteImpl) Update(fn func(tx region.ITxn) error) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	sqlTx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}

	if err := fn(&txn{view: view{q: sqlTx}}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	return sqlTx.Commit()
}

// Snapshot opens a read transaction. In WAL mode SQLite pins the snapshot at
// the first read, which is done right away.
func (s *sqliteImpl) Snapshot() (region.ISnapshot, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	sqlTx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return nil, err
	}

	var n int64
	if err := sqlTx.QueryRow(`SELECT COUNT(*) FROM region_entries WHERE region = 0`).Scan(&n); err != nil {
		_ = sqlTx.Rollback()
		return nil, err
	}

	return &snapshot{view: view{q: sqlTx}, tx: sqlTx}, nil
}

func (s *sqliteImpl) SupportsFeature(feature region.Feature) bool {
	supported := region.FeatureDurable | region.FeatureSnapshotRead | region.FeatureAtomicBatch
	return feature&supported == feature
}

func (s *sqliteImpl) GetInfo() region.Info {
	return region.Info{
		Impl:              region.ImplSQLite,
		Path:              s.path,
		SupportedFeatures: region.FeatureNames(s),
	}
}

func (s *sqliteImpl) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.db.Close()
}

// --------------------------------------------------------------------------
// Views
// --------------------------------------------------------------------------

// querier is implemented by *sql.Tx
type querier interface {
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
	Exec(query string, args ...any) (sql.Result, error)
}

type view struct {
	q querier
}

func (v view) Reader(id region.ID) region.IReader {
	return reader{q: v.q, id: id}
}

func (v view) Regions() ([]region.ID, error) {
	rows, err := v.q.Query(`SELECT DISTINCT region FROM region_entries ORDER BY region`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []region.ID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, region.ID(id))
	}
	return ids, rows.Err()
}

type reader struct {
	q  querier
	id region.ID
}

func (r reader) Get(key uint64) ([]byte, bool, error) {
	var value []byte
	err := r.q.QueryRow(`SELECT value FROM region_entries WHERE region = ? AND key = ?`, int64(r.id), encodeKey(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

func (r reader) Len() (uint64, error) {
	var n int64
	if err := r.q.QueryRow(`SELECT COUNT(*) FROM region_entries WHERE region = ?`, int64(r.id)).Scan(&n); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

func (r reader) Ascend(fn func(key uint64, value []byte) bool) error {
	rows, err := r.q.Query(`SELECT key, value FROM region_entries WHERE region = ? ORDER BY key`, int64(r.id))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var rawKey, value []byte
		if err := rows.Scan(&rawKey, &value); err != nil {
			return err
		}
		key, err := decodeKey(rawKey)
		if err != nil {
			return err
		}
		if !fn(key, value) {
			break
		}
	}
	return rows.Err()
}

type snapshot struct {
	view
	tx   *sql.Tx
	once sync.Once
}

func (s *snapshot) Release() (err error) {
	s.once.Do(func() {
		err = s.tx.Rollback()
	})
	return err
}

// --------------------------------------------------------------------------
// Transactions
// --------------------------------------------------------------------------

type txn struct {
	view
}

func (tx *txn) Writer(id region.ID) region.IWriter {
	return writer{reader: reader{q: tx.q, id: id}}
}

type writer struct {
	reader
}

func (w writer) Set(key uint64, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := w.q.Exec(`INSERT INTO region_entries (region, key, value) VALUES (?, ?, ?)
		ON CONFLICT (region, key) DO UPDATE SET value = excluded.value`, int64(w.id), encodeKey(key), value)
	return err
}

func (w writer) Delete(key uint64) error {
	_, err := w.q.Exec(`DELETE FROM region_entries WHERE region = ? AND key = ?`, int64(w.id), encodeKey(key))
	return err
}

func (w writer) Clear() error {
	_, err := w.q.Exec(`DELETE FROM region_entries WHERE region = ?`, int64(w.id))
	return err
}
