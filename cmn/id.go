// Package cmn provides common low-level types and utilities shared by every
// stacksd package: ids, integrity hashes, and debug assertions.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/binary"
	"sync"
	"time"
)

// ID is a 128-bit time-ordered identifier: a 48-bit millisecond timestamp
// followed by an 80-bit counter+random tail. Lexicographic byte order matches
// creation order, so ids double as the packet log's sort key.
type ID [16]byte

var zeroID ID

// NilID reports whether id was never assigned (the zero value).
func (id ID) NilID() bool { return id == zeroID }

// Bytes returns the big-endian wire representation, suitable as a buntdb key.
func (id ID) Bytes() []byte {
	b := make([]byte, 16)
	copy(b, id[:])
	return b
}

// Compare orders ids by creation time, ties broken by the tail bits.
func (id ID) Compare(other ID) int {
	for i := range id {
		if id[i] != other[i] {
			if id[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Less reports id < other, the ordering packet ids are meant to respect.
func (id ID) Less(other ID) bool { return id.Compare(other) < 0 }

// Time recovers the millisecond timestamp embedded in id's first 48 bits,
// used by the current-stack recency check (is the most recent stack less
// than an hour old) without needing a separate stored timestamp field.
func (id ID) Time() time.Time {
	var tsBuf [8]byte
	copy(tsBuf[2:], id[:6])
	ms := binary.BigEndian.Uint64(tsBuf[:])
	return time.UnixMilli(int64(ms))
}

// idEncoding is a lowercase, Crockford-style base32 alphabet: no padding, no
// ambiguous characters, so printed ids are safe in filenames and URLs.
var idEncoding = base32.NewEncoding("0123456789abcdefghjkmnpqrstvwxyz").WithPadding(base32.NoPadding)

func (id ID) String() string { return idEncoding.EncodeToString(id[:]) }

// ParseID parses the String() representation back into an ID.
func ParseID(s string) (ID, error) {
	var id ID
	b, err := idEncoding.DecodeString(s)
	if err != nil {
		return id, err
	}
	copy(id[:], b)
	return id, nil
}

// idGen produces monotonically increasing ids even when called faster than
// the clock tick: ties within the same millisecond bump a counter embedded
// in the tail instead of colliding.
type idGen struct {
	mu     sync.Mutex
	lastMs int64
	ctr    uint32
}

var gen idGen

// NewID allocates a fresh, strictly-increasing ID. Safe for concurrent use:
// store's Build* methods and ingest.Begin call it outside the engine's lock,
// before the packet is committed.
func NewID() ID {
	gen.mu.Lock()
	defer gen.mu.Unlock()

	ms := time.Now().UnixMilli()
	if ms <= gen.lastMs {
		ms = gen.lastMs
		gen.ctr++
	} else {
		gen.lastMs = ms
		gen.ctr = 0
	}

	var id ID
	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(ms))
	copy(id[:6], tsBuf[2:]) // low 48 bits of the timestamp

	binary.BigEndian.PutUint32(id[6:10], gen.ctr)
	if _, err := rand.Read(id[10:]); err != nil {
		// crypto/rand.Read on a fixed-size buffer only fails if the OS
		// entropy source is broken; there's nothing sane to do but panic,
		// same severity as a poisoned lock per the engine's error design.
		panic("cmn: failed to read random bytes for id: " + err.Error())
	}
	return id
}
