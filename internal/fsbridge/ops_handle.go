package fsbridge

import (
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/kvfuse-project/kvfuse/internal/errs"
)

func (fs *FS) OpenDir(op *fuseops.OpenDirOp) (err error) {
	items, err := fs.facade.ReadDir(op.Context(), uint64(op.Inode))
	if err != nil {
		return toErrno(err)
	}

	entries := make([]fuseutil.Dirent, len(items))
	for i, it := range items {
		entries[i] = fuseutil.Dirent{
			Offset: fuseops.DirOffset(i + 1),
			Inode:  fuseops.InodeID(it.Ino),
			Name:   it.Name,
			Type:   direntType(it.Kind),
		}
	}

	fs.mu.Lock()
	handle := fs.nextHandle
	fs.nextHandle++
	fs.dirHandles[handle] = &dirHandle{entries: entries}
	fs.mu.Unlock()

	op.Handle = handle
	return nil
}

func (fs *FS) ReadDir(op *fuseops.ReadDirOp) (err error) {
	fs.mu.Lock()
	dh, ok := fs.dirHandles[op.Handle]
	fs.mu.Unlock()
	if !ok {
		return toErrno(&errs.UnknownError{Msg: "unknown directory handle"})
	}

	var n int
	for i := int(op.Offset); i < len(dh.entries); i++ {
		written := fuseutil.WriteDirent(op.Dst[n:], dh.entries[i])
		if written == 0 {
			break
		}
		n += written
	}
	op.BytesRead = n
	return nil
}

func (fs *FS) ReleaseDirHandle(op *fuseops.ReleaseDirHandleOp) (err error) {
	fs.mu.Lock()
	delete(fs.dirHandles, op.Handle)
	fs.mu.Unlock()
	return nil
}

// FsyncDir is a no-op success: every engine operation already commits its
// own KV transaction before returning, so there is nothing left to flush
// (mirrors the original's treatment of fsyncdir).
func (fs *FS) FsyncDir(op *fuseops.FsyncDirOp) (err error) {
	return nil
}

func (fs *FS) OpenFile(op *fuseops.OpenFileOp) (err error) {
	return fs.recordOp(op.Context(), "open_file", func() error {
		if err := fs.facade.Open(op.Context(), uint64(op.Inode)); err != nil {
			return toErrno(err)
		}
		op.Handle = fuseops.HandleID(op.Inode)
		return nil
	})
}

func (fs *FS) ReadFile(op *fuseops.ReadFileOp) (err error) {
	return fs.recordOp(op.Context(), "read_file", func() error {
		data, err := fs.facade.Read(op.Context(), uint64(op.Inode), op.Offset, uint64(op.Size))
		if err != nil {
			return toErrno(err)
		}
		op.BytesRead = copy(op.Dst, data)
		return nil
	})
}

func (fs *FS) WriteFile(op *fuseops.WriteFileOp) (err error) {
	return fs.recordOp(op.Context(), "write_file", func() error {
		_, err := fs.facade.Write(op.Context(), uint64(op.Inode), op.Offset, op.Data)
		if err != nil {
			return toErrno(err)
		}
		return nil
	})
}

// SyncFile is a no-op success for the same reason as FsyncDir: writes are
// already durable in the KV store once Write returns.
func (fs *FS) SyncFile(op *fuseops.SyncFileOp) (err error) {
	return nil
}

// FlushFile is a no-op success; see SyncFile.
func (fs *FS) FlushFile(op *fuseops.FlushFileOp) (err error) {
	return nil
}

func (fs *FS) ReleaseFileHandle(op *fuseops.ReleaseFileHandleOp) (err error) {
	if err = fs.facade.Release(op.Context(), uint64(op.Handle)); err != nil {
		return toErrno(err)
	}
	return nil
}

func (fs *FS) StatFS(op *fuseops.StatFSOp) (err error) {
	return fs.recordOp(op.Context(), "statfs", func() error {
		st, err := fs.facade.StatFs(op.Context())
		if err != nil {
			return toErrno(err)
		}
		op.Blocks = st.Blocks
		op.BlocksFree = st.Bfree
		op.BlocksAvailable = st.Bavail
		op.IoSize = uint32(fs.facade.Config().BlockSize)
		op.BlockSize = uint32(fs.facade.Config().BlockSize)
		op.Inodes = st.Files
		op.InodesFree = st.Ffree

		// Without a quota, StatFs reports Blocks as the blocks in use and
		// Bfree as unlimited; with one, Blocks is the quota.
		blocksUsed := st.Blocks
		if st.Bfree != ^uint64(0) {
			blocksUsed = 0
			if st.Blocks > st.Bfree {
				blocksUsed = st.Blocks - st.Bfree
			}
		}
		fs.metrics.SetStatFS(blocksUsed, st.Bfree, st.Files)
		return nil
	})
}

// Getlk and Setlk always succeed without real byte-range locking, per
// DESIGN.md's Open-Question resolution (the original returns Ok(()) here
// too).
func (fs *FS) GetLk(op *fuseops.GetLkOp) (err error) {
	return nil
}

func (fs *FS) SetLk(op *fuseops.SetLkOp) (err error) {
	return nil
}

// fallocFlKeepSize mirrors Linux's FALLOC_FL_KEEP_SIZE: space is reserved
// without growing the reported file size.
const fallocFlKeepSize = 0x01

func (fs *FS) Fallocate(op *fuseops.FallocateOp) (err error) {
	return fs.recordOp(op.Context(), "fallocate", func() error {
		keepSize := op.Mode&fallocFlKeepSize != 0
		if err := fs.facade.Fallocate(op.Context(), uint64(op.Inode), int64(op.Offset), uint64(op.Length), keepSize); err != nil {
			return toErrno(err)
		}
		return nil
	})
}

func (fs *FS) SyncFS(op *fuseops.SyncFSOp) (err error) {
	return nil
}
