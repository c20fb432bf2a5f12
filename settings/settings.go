// Package settings implements the small JSON key/value settings blob
// persisted under meta["settings"]: OpenAI access token/model, the
// cross-stream publish token, and the (opaque, out-of-scope) activation
// shortcut chord, all under a single named key in the shared meta table.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package settings

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/tidwall/buntdb"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const metaKey = "settings"

// Shortcut is the opaque hotkey chord persisted under `activation_shortcut`.
// Binding it to an OS-level hotkey is out of scope; the core only stores
// and returns it.
type Shortcut struct {
	Shift   bool `json:"shift"`
	Ctrl    bool `json:"ctrl"`
	Alt     bool `json:"alt"`
	Command bool `json:"command"`
}

// Settings mirrors the wire shape documented for meta["settings"].
type Settings struct {
	OpenAIAccessToken      string    `json:"openai_access_token"`
	OpenAISelectedModel    string    `json:"openai_selected_model"`
	CrossStreamAccessToken *string   `json:"cross_stream_access_token"`
	ActivationShortcut     *Shortcut `json:"activation_shortcut"`
}

// Store persists Settings inside the shared meta buntdb table, under the
// single key "settings" (the table also backs other small singleton values
// callers may add later, hence the generic Get/Put beneath the typed API).
type Store struct {
	db *buntdb.DB
}

// Open opens (creating if absent) the meta table at path.
func Open(path string) (*Store, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "settings: failed to open %s", path)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Load returns the persisted Settings, or the zero value if none have been
// saved yet.
func (s *Store) Load() (Settings, error) {
	var out Settings
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(metaKey)
		if err == buntdb.ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(v), &out)
	})
	if err != nil {
		return Settings{}, errors.Wrap(err, "settings: failed to load")
	}
	return out, nil
}

// Save persists v, overwriting whatever was there before.
func (s *Store) Save(v Settings) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "settings: failed to encode")
	}
	err = s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(metaKey, string(b), nil)
		return err
	})
	return errors.Wrap(err, "settings: failed to save")
}

// Get reads an arbitrary string value from the shared meta table, e.g. for
// small wiring singletons beyond Settings itself.
func (s *Store) Get(key string) (string, bool, error) {
	var val string
	var found bool
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key)
		if err == buntdb.ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		val, found = v, true
		return nil
	})
	return val, found, errors.Wrap(err, "settings: failed to read key")
}

// Put writes an arbitrary string value into the shared meta table.
func (s *Store) Put(key, value string) error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, value, nil)
		return err
	})
	return errors.Wrap(err, "settings: failed to write key")
}
