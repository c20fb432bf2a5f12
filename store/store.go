// Package store wires together the CAS, content-metadata cache, packet log,
// full-text index, and settings table. It shapes every Packet the engine's
// Core API can produce, but deliberately never appends one itself: blob
// writes (CAS + meta + index + bus, all genuine IO) happen here so the
// engine can perform them before taking its single lock, while Append and
// the view merge happen together inside that lock, the "I/O outside lock,
// bookkeeping inside" split the concurrency model calls for.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package store

import (
	"github.com/pkg/errors"

	"github.com/cablehead/stacks/cas"
	"github.com/cablehead/stacks/cmn"
	"github.com/cablehead/stacks/contentmeta"
	"github.com/cablehead/stacks/ftsindex"
	"github.com/cablehead/stacks/packetlog"
	"github.com/cablehead/stacks/settings"
)

// Store is the engine's IO layer: everything that touches disk or the
// content-meta bus. It has no notion of the in-memory view; engine.Engine
// folds the packets Store shapes into one.
type Store struct {
	CAS      *cas.Store
	Meta     *contentmeta.Cache
	Log      *packetlog.Log
	FTS      *ftsindex.Index
	Settings *settings.Store
	Bus      *contentmeta.Bus
}

// Paths names the on-disk layout under one root directory: the cas/ blob
// tree, and one buntdb file each for the full-text index (IndexDir), the
// packets, the content meta and the settings.
type Paths struct {
	CASDir       string
	IndexDir     string
	PacketsFile  string
	MetaFile     string
	SettingsFile string
}

// Open opens every sub-store at the given paths.
func Open(p Paths) (*Store, error) {
	casStore, err := cas.Open(p.CASDir)
	if err != nil {
		return nil, err
	}
	meta, err := contentmeta.Open(p.MetaFile)
	if err != nil {
		return nil, err
	}
	log, err := packetlog.Open(p.PacketsFile)
	if err != nil {
		return nil, err
	}
	fts, err := ftsindex.Open(p.IndexDir)
	if err != nil {
		return nil, err
	}
	settingsStore, err := settings.Open(p.SettingsFile)
	if err != nil {
		return nil, err
	}
	return &Store{
		CAS:      casStore,
		Meta:     meta,
		Log:      log,
		FTS:      fts,
		Settings: settingsStore,
		Bus:      contentmeta.NewBus(),
	}, nil
}

func (s *Store) Close() error {
	var errs []error
	if err := s.Meta.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Log.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.FTS.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Settings.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// WriteBlob writes content to CAS; on a first-time write it derives and
// persists a ContentMeta, indexes text content, and broadcasts the meta,
// the "side effect on first-time write" of the CAS design. Pure IO: safe to
// call before the engine takes its critical-section lock.
func (s *Store) WriteBlob(content []byte, mime contentmeta.MimeType) (cmn.Hash, error) {
	hash, fresh, err := s.CAS.Write(content)
	if err != nil {
		return hash, errors.Wrap(err, "store: failed to write blob")
	}
	if !fresh {
		return hash, nil
	}
	cm := contentmeta.Derive(hash, mime, content)
	if err := s.Meta.Put(cm); err != nil {
		return hash, err
	}
	if mime == contentmeta.TextPlain {
		if err := s.FTS.Write(hash, content); err != nil {
			return hash, errors.Wrap(err, "store: failed to index blob")
		}
	}
	s.Bus.Publish(cm)
	return hash, nil
}

// BuildAdd shapes 4.4's add(bytes, mime, stack): writes the blob (IO), then
// returns the not-yet-appended Packet.
func (s *Store) BuildAdd(content []byte, mime contentmeta.MimeType, stack *cmn.ID) (packetlog.Packet, error) {
	hash, err := s.WriteBlob(content, mime)
	if err != nil {
		return packetlog.Packet{}, err
	}
	return packetlog.NewAdd(cmn.NewID(), hash, stack, false), nil
}

// BuildAddStack shapes 4.4's add_stack(name, lock_status): the stack's name
// is its own TextPlain content, same as any other item.
func (s *Store) BuildAddStack(name string, lockStatus packetlog.LockStatus) (packetlog.Packet, error) {
	hash, err := s.WriteBlob([]byte(name), contentmeta.TextPlain)
	if err != nil {
		return packetlog.Packet{}, err
	}
	return packetlog.NewAddStack(cmn.NewID(), hash, lockStatus), nil
}

// BuildUpdate shapes 4.4's update(source, bytes?, mime, stack?).
func (s *Store) BuildUpdate(source cmn.ID, content []byte, mime contentmeta.MimeType, stack *cmn.ID) (packetlog.Packet, error) {
	var hashPtr *cmn.Hash
	if content != nil {
		hash, err := s.WriteBlob(content, mime)
		if err != nil {
			return packetlog.Packet{}, err
		}
		hashPtr = &hash
	}
	return packetlog.NewUpdate(cmn.NewID(), source, hashPtr, stack), nil
}

func (s *Store) BuildUpdateTouch(source cmn.ID) packetlog.Packet {
	return packetlog.NewUpdateTouch(cmn.NewID(), source)
}

// BuildUpdateContentType shapes 4.4's update_content_type(hash,
// content_type). The cached meta is overridden immediately (not deferred to
// a view merge: the view has no notion of content_type at all, it's a
// property of the hash, not the item).
func (s *Store) BuildUpdateContentType(hash cmn.Hash, contentType string) (packetlog.Packet, error) {
	if err := s.Meta.SetContentType(hash, contentType); err != nil {
		return packetlog.Packet{}, err
	}
	return packetlog.NewUpdateContentType(cmn.NewID(), hash, contentType), nil
}

func (s *Store) BuildUpdateMove(source cmn.ID, movement packetlog.Movement) packetlog.Packet {
	return packetlog.NewUpdateMove(cmn.NewID(), source, movement)
}

func (s *Store) BuildMarkAsCrossStream(stack cmn.ID) packetlog.Packet {
	return packetlog.NewMarkAsCrossStream(cmn.NewID(), stack)
}

func (s *Store) BuildUpdateStackLockStatus(source cmn.ID, status packetlog.LockStatus) packetlog.Packet {
	return packetlog.NewUpdateStackLockStatus(cmn.NewID(), source, status)
}

func (s *Store) BuildUpdateStackSortOrder(source cmn.ID, order packetlog.SortOrder) packetlog.Packet {
	return packetlog.NewUpdateStackSortOrder(cmn.NewID(), source, order)
}

// BuildFork shapes 4.4's fork(source, bytes?, mime, stack?).
func (s *Store) BuildFork(source cmn.ID, content []byte, mime contentmeta.MimeType, stack *cmn.ID) (packetlog.Packet, error) {
	var hashPtr *cmn.Hash
	if content != nil {
		hash, err := s.WriteBlob(content, mime)
		if err != nil {
			return packetlog.Packet{}, err
		}
		hashPtr = &hash
	}
	return packetlog.NewFork(cmn.NewID(), source, hashPtr, stack), nil
}

func (s *Store) BuildDelete(source cmn.ID) packetlog.Packet {
	return packetlog.NewDelete(cmn.NewID(), source)
}

// Append records p in the log. Called by the engine from inside its
// critical section, immediately followed by folding p into the view.
func (s *Store) Append(p packetlog.Packet) error {
	return s.Log.Append(p)
}

// GetContent implements 4.6's get_content(hash).
func (s *Store) GetContent(hash cmn.Hash) ([]byte, bool, error) {
	return s.CAS.Read(hash)
}

// GetContentMeta implements 4.6's get_content_meta(hash).
func (s *Store) GetContentMeta(hash cmn.Hash) (contentmeta.ContentMeta, bool) {
	return s.Meta.Get(hash)
}

// Query implements the navigation model's set_filter combination: a
// fuzzy-prefix text match (skipped when filterText is empty) intersected
// with the content-type predicate (skipped/always-true when contentType is
// empty or "All").
func (s *Store) Query(filterText, contentType string) map[cmn.Hash]struct{} {
	var textMatches map[cmn.Hash]struct{}
	if filterText != "" {
		textMatches = s.FTS.Query(filterText)
	}

	out := make(map[cmn.Hash]struct{})
	for _, cm := range s.Meta.All() {
		if !contentmeta.MatchesContentType(contentType, cm.ContentType) {
			continue
		}
		if textMatches != nil {
			if _, ok := textMatches[cm.Hash]; !ok {
				continue
			}
		}
		out[cm.Hash] = struct{}{}
	}
	return out
}
