// Package packetlog implements the append-only event log: the authoritative
// source of truth the view is folded from, backed by the embedded KV
// github.com/tidwall/buntdb.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package packetlog

import (
	"github.com/cablehead/stacks/cmn"
)

// PacketType enumerates the kinds of mutation the log can record.
type PacketType uint8

const (
	Add PacketType = iota
	Update
	Fork
	Delete
)

func (t PacketType) String() string {
	switch t {
	case Add:
		return "Add"
	case Update:
		return "Update"
	case Fork:
		return "Fork"
	case Delete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// Movement is a manual reorder direction.
type Movement uint8

const (
	Up Movement = iota
	Down
)

// LockStatus locks or unlocks a stack against accidental deletion/reorder.
type LockStatus uint8

const (
	Locked LockStatus = iota
	Unlocked
)

// SortOrder selects whether a stack's children are ordered by recency
// (Auto) or by the explicit children list (Manual).
type SortOrder uint8

const (
	Auto SortOrder = iota
	Manual
)

// Packet is one immutable log record. Optional fields are pointers so the
// zero value (absent) round-trips distinctly from a present zero/false.
type Packet struct {
	ID          cmn.ID
	Type        PacketType
	SourceID    *cmn.ID
	Hash        *cmn.Hash
	StackID     *cmn.ID
	Ephemeral   bool
	ContentType *string
	Movement    *Movement
	LockStatus  *LockStatus
	SortOrder   *SortOrder
	CrossStream bool
}

// --- pure constructors: the caller supplies a fresh id (cmn.NewID()); these
// only shape the Packet value, they never touch the log or CAS themselves.
// store wires these to actual CAS writes and log appends (see store.Store).

func NewAdd(id cmn.ID, hash cmn.Hash, stackID *cmn.ID, ephemeral bool) Packet {
	return Packet{ID: id, Type: Add, Hash: &hash, StackID: stackID, Ephemeral: ephemeral}
}

func NewAddStack(id cmn.ID, hash cmn.Hash, lockStatus LockStatus) Packet {
	ls := lockStatus
	return Packet{ID: id, Type: Add, Hash: &hash, LockStatus: &ls}
}

func NewUpdate(id cmn.ID, source cmn.ID, hash *cmn.Hash, stackID *cmn.ID) Packet {
	return Packet{ID: id, Type: Update, SourceID: &source, Hash: hash, StackID: stackID}
}

func NewUpdateTouch(id cmn.ID, source cmn.ID) Packet {
	return Packet{ID: id, Type: Update, SourceID: &source}
}

func NewUpdateContentType(id cmn.ID, hash cmn.Hash, contentType string) Packet {
	return Packet{ID: id, Type: Update, Hash: &hash, ContentType: &contentType}
}

func NewUpdateMove(id cmn.ID, source cmn.ID, movement Movement) Packet {
	m := movement
	return Packet{ID: id, Type: Update, SourceID: &source, Movement: &m}
}

func NewMarkAsCrossStream(id cmn.ID, stack cmn.ID) Packet {
	return Packet{ID: id, Type: Update, StackID: &stack, CrossStream: true}
}

func NewUpdateStackLockStatus(id cmn.ID, source cmn.ID, status LockStatus) Packet {
	s := status
	return Packet{ID: id, Type: Update, SourceID: &source, LockStatus: &s}
}

func NewUpdateStackSortOrder(id cmn.ID, source cmn.ID, order SortOrder) Packet {
	o := order
	return Packet{ID: id, Type: Update, SourceID: &source, SortOrder: &o}
}

func NewFork(id cmn.ID, source cmn.ID, hash *cmn.Hash, stackID *cmn.ID) Packet {
	return Packet{ID: id, Type: Fork, SourceID: &source, Hash: hash, StackID: stackID}
}

func NewDelete(id cmn.ID, source cmn.ID) Packet {
	return Packet{ID: id, Type: Delete, SourceID: &source}
}
