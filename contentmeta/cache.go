package contentmeta

import (
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/tidwall/buntdb"

	"github.com/cablehead/stacks/cmn"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Cache is the persistent hash -> ContentMeta table, buntdb-backed, mirrored
// in an in-memory map for O(1) reads.
type Cache struct {
	db *buntdb.DB

	mu     sync.RWMutex
	mirror map[cmn.Hash]ContentMeta
}

// Open opens (creating if absent) the content-meta table at path.
func Open(path string) (*Cache, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "contentmeta: failed to open %s", path)
	}
	c := &Cache{db: db, mirror: make(map[cmn.Hash]ContentMeta)}
	if err := c.loadMirror(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) Close() error { return c.db.Close() }

func (c *Cache) loadMirror() error {
	return c.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend("", func(key, value string) bool {
			var cm ContentMeta
			if err := json.Unmarshal([]byte(value), &cm); err != nil {
				return true
			}
			c.mirror[cm.Hash] = cm
			return true
		})
	})
}

// Put persists cm and updates the in-memory mirror.
func (c *Cache) Put(cm ContentMeta) error {
	b, err := json.Marshal(cm)
	if err != nil {
		return errors.Wrap(err, "contentmeta: failed to encode meta")
	}
	err = c.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(cm.Hash.String(), string(b), nil)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "contentmeta: failed to persist meta")
	}
	c.mu.Lock()
	c.mirror[cm.Hash] = cm
	c.mu.Unlock()
	return nil
}

// Get returns the cached meta for h, if any.
func (c *Cache) Get(h cmn.Hash) (ContentMeta, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cm, ok := c.mirror[h]
	return cm, ok
}

// All returns every cached meta, for enumerate() and query().
func (c *Cache) All() []ContentMeta {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ContentMeta, 0, len(c.mirror))
	for _, cm := range c.mirror {
		out = append(out, cm)
	}
	return out
}

// SetContentType applies a content_type override (from an Update packet) to
// an already-cached meta, leaving other fields untouched. A miss is a no-op:
// the meta may have been dropped by Rebuild for a missing CAS blob.
func (c *Cache) SetContentType(h cmn.Hash, contentType string) error {
	c.mu.Lock()
	cm, ok := c.mirror[h]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	cm.ContentType = contentType
	c.mu.Unlock()
	return c.Put(cm)
}

// SetTiktokens backfills the token count for h (Tokenizer's write path).
func (c *Cache) SetTiktokens(h cmn.Hash, count int) error {
	c.mu.Lock()
	cm, ok := c.mirror[h]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	cm.Tiktokens = count
	c.mu.Unlock()
	return c.Put(cm)
}

// Purge removes h from both the persistent table and the mirror.
func (c *Cache) Purge(h cmn.Hash) error {
	c.mu.Lock()
	delete(c.mirror, h)
	c.mu.Unlock()
	err := c.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(h.String())
		if err == buntdb.ErrNotFound {
			return nil
		}
		return err
	})
	return errors.Wrap(err, "contentmeta: failed to purge meta")
}

// Rebuild drops any cached entry whose blob no longer exists in CAS (the
// startup self-healing pass), per exists.
func (c *Cache) Rebuild(exists func(cmn.Hash) bool) error {
	c.mu.Lock()
	var stale []cmn.Hash
	for h := range c.mirror {
		if !exists(h) {
			stale = append(stale, h)
		}
	}
	for _, h := range stale {
		delete(c.mirror, h)
	}
	c.mu.Unlock()

	for _, h := range stale {
		if err := c.db.Update(func(tx *buntdb.Tx) error {
			_, err := tx.Delete(h.String())
			if err == buntdb.ErrNotFound {
				return nil
			}
			return err
		}); err != nil {
			return errors.Wrap(err, "contentmeta: failed to drop stale meta")
		}
	}
	return nil
}
