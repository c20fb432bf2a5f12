// Package cas implements the content-addressed blob store: write-by-hash,
// read-by-hash, purge, enumerate. Blobs are sharded across subdirectories
// by the first two hex digits of the integrity hash, the classic
// git-object-store layout, and written via cmn/cos's atomic rename-on-write.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package cas

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/cablehead/stacks/cmn"
	"github.com/cablehead/stacks/cmn/cos"
)

// Store is a directory of content-addressed blobs, one file per hash.
type Store struct {
	root string
}

// Open returns a Store rooted at dir, creating dir if it doesn't exist.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "cas: failed to create %s", dir)
	}
	return &Store{root: dir}, nil
}

func (s *Store) pathFor(h cmn.Hash) string {
	digest := h.Digest
	shard := digest
	if len(digest) >= 2 {
		shard = digest[:2]
	}
	return filepath.Join(s.root, string(h.Algo), shard, digest)
}

// Write computes content's hash, writes it if not already present, and
// returns the hash. Idempotent: an identical second write is a no-op beyond
// the hash computation (invariant: two identical byte sequences share one
// CAS entry).
func (s *Store) Write(content []byte) (cmn.Hash, bool, error) {
	h := cmn.HashBytes(content)
	path := s.pathFor(h)
	if _, err := os.Stat(path); err == nil {
		return h, false, nil
	} else if !os.IsNotExist(err) {
		return h, false, errors.Wrapf(err, "cas: failed to stat %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return h, false, errors.Wrapf(err, "cas: failed to create shard dir for %s", h)
	}
	if err := cos.WriteFileAtomic(path, content); err != nil {
		return h, false, errors.Wrapf(err, "cas: failed to write blob %s", h)
	}
	return h, true, nil
}

// Read returns the bytes for h, or (nil, false, nil) if absent. A CAS read
// miss is never an error; callers treat absence as "still loading" or
// "already purged" and handle it explicitly.
func (s *Store) Read(h cmn.Hash) ([]byte, bool, error) {
	b, err := os.ReadFile(s.pathFor(h))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "cas: failed to read blob %s", h)
	}
	return b, true, nil
}

// Purge removes h's blob. Idempotent: purging an absent hash is a no-op.
func (s *Store) Purge(h cmn.Hash) error {
	err := os.Remove(s.pathFor(h))
	if os.IsNotExist(err) {
		return nil
	}
	return errors.Wrapf(err, "cas: failed to purge blob %s", h)
}

// Has reports whether h's blob is present, used by packetlog.Scan's
// dangling-reference filter and by the view's CAS-liveness invariant.
func (s *Store) Has(h cmn.Hash) bool {
	_, err := os.Stat(s.pathFor(h))
	return err == nil
}
