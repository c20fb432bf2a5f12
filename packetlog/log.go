package packetlog

import (
	"encoding/hex"

	"github.com/pkg/errors"
	"github.com/tidwall/buntdb"

	"github.com/cablehead/stacks/cmn"
	"github.com/cablehead/stacks/cmn/xlog"
)

// Log is the append-only packet store: an embedded ordered KV (buntdb)
// keyed by the packet id's big-endian bytes, hex-encoded so buntdb's
// lexicographic string ordering matches creation order.
type Log struct {
	db *buntdb.DB
}

// Open opens (creating if absent) the packet log at path.
func Open(path string) (*Log, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "packetlog: failed to open %s", path)
	}
	return &Log{db: db}, nil
}

func (l *Log) Close() error { return l.db.Close() }

func keyFor(id cmn.ID) string { return hex.EncodeToString(id.Bytes()) }

// Append writes p to the log under its id. A packet already stored under the
// same id is replaced.
func (l *Log) Append(p Packet) error {
	b, err := p.Marshal()
	if err != nil {
		return errors.Wrap(err, "packetlog: failed to encode packet")
	}
	err = l.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(keyFor(p.ID), string(b), nil)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "packetlog: failed to append packet")
	}
	return nil
}

// Remove deletes the packet with the given id. Used only by undo, to strip
// the deletion packet before replaying the log from scratch.
func (l *Log) Remove(id cmn.ID) error {
	err := l.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(keyFor(id))
		if err == buntdb.ErrNotFound {
			return nil
		}
		return err
	})
	return errors.Wrap(err, "packetlog: failed to remove packet")
}

// Exists reports whether hash should be considered live, used by Scan to
// filter dangling references. Defined as a parameter rather than a direct
// CAS dependency, so packetlog has no import-time dependency on cas.
type Exists func(h cmn.Hash) bool

// Scan replays the log in id (creation) order, invoking visit for each
// packet whose referenced hash (if any) still exists. A packet with no hash
// always passes; packets whose hash is present but absent from the CAS are
// skipped as self-healing behavior. A structural decode failure (neither
// current nor legacy shape parses), or an error from visit, aborts the scan
// by panicking with scanAbort; ScanSafe recovers that into an error.
func (l *Log) Scan(exists Exists, visit func(Packet) error) error {
	return l.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend("", func(key, value string) bool {
			p, err := Unmarshal([]byte(value))
			if err != nil {
				// structural corruption; stop and surface the error.
				xlog.Errorf("packetlog: corrupt packet at key %s: %v", key, err)
				panic(scanAbort{err})
			}
			if p.Hash != nil && !exists(*p.Hash) {
				xlog.Warnf("packetlog: dangling reference to %s in packet %s, skipping", p.Hash, p.ID)
				return true
			}
			if err := visit(p); err != nil {
				panic(scanAbort{err})
			}
			return true
		})
	})
}

// scanAbort lets Scan's Ascend callback (which can't return an error)
// unwind to ScanSafe via recover, instead of the process crashing outright;
// the engine decides whether a corrupt log is startup-fatal.
type scanAbort struct{ err error }

// ScanSafe wraps Scan, converting the recoverable corrupt-log panic back
// into a plain error for the caller (engine's boot-time replay).
func (l *Log) ScanSafe(exists Exists, visit func(Packet) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if abort, ok := r.(scanAbort); ok {
				err = errors.Wrap(abort.err, "packetlog: corrupt log")
				return
			}
			panic(r)
		}
	}()
	return l.Scan(exists, visit)
}
