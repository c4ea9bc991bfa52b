// Package ledger keeps an optional SQLite record of conversion runs: every
// input file, the events written for it and the warnings raised.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	types "github.com/stronnag/kml2cot/pkg/types"
)

const SCHEMA = `CREATE TABLE IF NOT EXISTS runs (id integer NOT NULL PRIMARY KEY, dtg text, command text);
CREATE TABLE IF NOT EXISTS files (run integer, source text, path text, status text,
 placemarks integer, events integer, warnings integer, errstr text);
CREATE TABLE IF NOT EXISTS events (run integer, source text, idx integer, uid text,
 type text, callsign text, file text);
CREATE TABLE IF NOT EXISTS warnings (run integer, source text, kind text, placemark integer,
 name text, message text)`

const IRUN = `insert into runs (dtg, command) values (?,?)`
const IFILE = `insert into files (run, source, path, status, placemarks, events, warnings, errstr)
 values (:run,:source,:path,:status,:placemarks,:events,:warnings,:errstr)`
const IEVENT = `insert into events (run, source, idx, uid, type, callsign, file)
 values (:run,:source,:idx,:uid,:type,:callsign,:file)`
const IWARN = `insert into warnings (run, source, kind, placemark, name, message)
 values (:run,:source,:kind,:placemark,:name,:message)`

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

type FileRecord struct {
	Run        int64  `db:"run"`
	Source     string `db:"source"`
	Path       string `db:"path"`
	Status     string `db:"status"`
	Placemarks int    `db:"placemarks"`
	Events     int    `db:"events"`
	Warnings   int    `db:"warnings"`
	Error      string `db:"errstr"`
}

type EventRecord struct {
	Run      int64  `db:"run"`
	Source   string `db:"source"`
	Index    int    `db:"idx"`
	UID      string `db:"uid"`
	Type     string `db:"type"`
	Callsign string `db:"callsign"`
	File     string `db:"file"`
}

type WarningRecord struct {
	Run       int64  `db:"run"`
	Source    string `db:"source"`
	Kind      string `db:"kind"`
	Placemark int    `db:"placemark"`
	Name      string `db:"name"`
	Message   string `db:"message"`
}

// Ledger serialises its own writes; workers may share one.
type Ledger struct {
	mu  sync.Mutex
	db  *sqlx.DB
	run int64
}

// Open creates or extends the database at fn and starts a new run.
func Open(fn string, command string) (*Ledger, error) {
	db, err := sqlx.Open("sqlite", fn)
	if err != nil {
		return nil, fmt.Errorf("ledger %s: %w", fn, err)
	}
	db.SetMaxOpenConns(1)
	if _, err = db.Exec(SCHEMA); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger tables: %w", err)
	}
	res, err := db.Exec(IRUN, time.Now().UTC().Format(time.RFC3339), command)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger run: %w", err)
	}
	run, err := res.LastInsertId()
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Ledger{db: db, run: run}, nil
}

func (l *Ledger) Run() int64 {
	return l.run
}

// Record writes one file's outcome in a single transaction.
func (l *Ledger) Record(f FileRecord, events []EventRecord, warns []types.Warning) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.Beginx()
	if err != nil {
		return fmt.Errorf("ledger begin: %w", err)
	}
	f.Run = l.run
	if _, err := tx.NamedExec(IFILE, f); err != nil {
		tx.Rollback()
		return fmt.Errorf("ledger file: %w", err)
	}
	for _, e := range events {
		e.Run = l.run
		e.Source = f.Source
		if _, err := tx.NamedExec(IEVENT, e); err != nil {
			tx.Rollback()
			return fmt.Errorf("ledger event: %w", err)
		}
	}
	for _, w := range warns {
		wr := WarningRecord{Run: l.run, Source: f.Source, Kind: w.Kind.String(),
			Placemark: w.Placemark, Name: w.Name, Message: w.Message}
		if _, err := tx.NamedExec(IWARN, wr); err != nil {
			tx.Rollback()
			return fmt.Errorf("ledger warning: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ledger commit: %w", err)
	}
	return nil
}

// Files lists the current run's files by source.
func (l *Ledger) Files() ([]FileRecord, error) {
	var res []FileRecord
	err := l.db.Select(&res, `select * from files where run = ? order by source`, l.run)
	return res, err
}

func (l *Ledger) Events(source string) ([]EventRecord, error) {
	var res []EventRecord
	err := l.db.Select(&res, `select * from events where run = ? and source = ? order by idx`, l.run, source)
	return res, err
}

func (l *Ledger) Warnings(source string) ([]WarningRecord, error) {
	var res []WarningRecord
	err := l.db.Select(&res, `select * from warnings where run = ? and source = ? order by rowid`, l.run, source)
	return res, err
}

func (l *Ledger) Close() error {
	return l.db.Close()
}
