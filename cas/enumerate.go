package cas

import (
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"

	"github.com/cablehead/stacks/cmn"
)

// WalkDisk enumerates every blob actually present on disk by walking the
// store's directory tree, independent of the content-metadata cache. The
// spec treats the meta cache as authoritative for liveness
// (contentmeta.Cache.All is the one callers should use); WalkDisk
// exists purely as a defence-in-depth consistency sweep at boot, to catch
// blobs the meta cache lost track of (e.g. a crash between blob write and
// meta-cache commit) so they can be logged rather than silently orphaned.
// Grounded on aistore's direct dependency on github.com/karrick/godirwalk,
// used there to walk mountpaths during rebalance/LRU scans.
func (s *Store) WalkDisk(visit func(cmn.Hash)) error {
	err := godirwalk.Walk(s.root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			h, ok := hashFromPath(s.root, path)
			if !ok {
				return nil
			}
			visit(h)
			return nil
		},
		Unsorted: true,
	})
	if err != nil {
		return errors.Wrap(err, "cas: disk walk failed")
	}
	return nil
}

// hashFromPath reconstructs a Hash from a blob's on-disk path, the inverse
// of Store.pathFor (root/algo/shard/digest).
func hashFromPath(root, path string) (cmn.Hash, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return cmn.Hash{}, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 {
		return cmn.Hash{}, false
	}
	return cmn.Hash{Algo: cmn.HashAlgo(parts[0]), Digest: parts[2]}, true
}
