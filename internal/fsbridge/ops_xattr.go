package fsbridge

import (
	"github.com/jacobsa/fuse/fuseops"

	"github.com/kvfuse-project/kvfuse/internal/errs"
)

// Extended attributes are not part of the on-disk model (no Xattr kv kind
// exists in internal/keys), so every xattr op surfaces Unimplemented per
// spec.md §6's default for operations the core does not support.

func (fs *FS) GetXattr(op *fuseops.GetXattrOp) (err error) {
	return toErrno(&errs.Unimplemented{Op: "getxattr"})
}

func (fs *FS) SetXattr(op *fuseops.SetXattrOp) (err error) {
	return toErrno(&errs.Unimplemented{Op: "setxattr"})
}

func (fs *FS) ListXattr(op *fuseops.ListXattrOp) (err error) {
	return toErrno(&errs.Unimplemented{Op: "listxattr"})
}

func (fs *FS) RemoveXattr(op *fuseops.RemoveXattrOp) (err error) {
	return toErrno(&errs.Unimplemented{Op: "removexattr"})
}

// Bmap and copy_file_range are explicitly surfaced as Unimplemented rather
// than silently missing from the dispatch, so the ENOSYS mapping is a
// visible decision (spec.md §6; DESIGN.md).

func (fs *FS) Bmap(op *fuseops.BmapOp) (err error) {
	return toErrno(&errs.Unimplemented{Op: "bmap"})
}

func (fs *FS) CopyFileRange(op *fuseops.CopyFileRangeOp) (err error) {
	return toErrno(&errs.Unimplemented{Op: "copy_file_range"})
}
