// Package fsbridge adapts the engine facade to the jacobsa/fuse
// fuseutil.FileSystem interface: every method here does request/response
// conversion and error mapping only, never storage logic.
package fsbridge

import (
	"os"
	"syscall"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/kvfuse-project/kvfuse/internal/codec"
	"github.com/kvfuse-project/kvfuse/internal/errs"
)

func kindToFileMode(kind codec.Kind, perm uint16) os.FileMode {
	mode := os.FileMode(perm) & os.ModePerm
	switch kind {
	case codec.KindDirectory:
		mode |= os.ModeDir
	case codec.KindSymlink:
		mode |= os.ModeSymlink
	case codec.KindCharDev:
		mode |= os.ModeCharDevice
	case codec.KindBlockDev:
		mode |= os.ModeDevice
	case codec.KindFifo:
		mode |= os.ModeNamedPipe
	case codec.KindSocket:
		mode |= os.ModeSocket
	}
	return mode
}

func fileModeToKind(mode os.FileMode) codec.Kind {
	switch {
	case mode&os.ModeDir != 0:
		return codec.KindDirectory
	case mode&os.ModeSymlink != 0:
		return codec.KindSymlink
	case mode&os.ModeCharDevice != 0:
		return codec.KindCharDev
	case mode&os.ModeDevice != 0:
		return codec.KindBlockDev
	case mode&os.ModeNamedPipe != 0:
		return codec.KindFifo
	case mode&os.ModeSocket != 0:
		return codec.KindSocket
	default:
		return codec.KindRegular
	}
}

func direntType(kind codec.Kind) fuseutil.DirentType {
	switch kind {
	case codec.KindDirectory:
		return fuseutil.DT_Directory
	case codec.KindSymlink:
		return fuseutil.DT_Link
	default:
		return fuseutil.DT_File
	}
}

func toAttributes(in *codec.Inode) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Size:   in.Size,
		Nlink:  in.Nlink,
		Mode:   kindToFileMode(in.Kind, in.Perm),
		Atime:  in.Atime,
		Mtime:  in.Mtime,
		Ctime:  in.Ctime,
		Crtime: in.Crtime,
		Uid:    in.Uid,
		Gid:    in.Gid,
	}
}

// toErrno maps the engine's typed errors onto the errno values the kernel
// expects, falling back to EIO for anything unrecognized. Unimplemented
// surfaces as ENOSYS per spec.
func toErrno(err error) error {
	if err == nil {
		return nil
	}
	switch err.(type) {
	case *errs.InodeNotFound, *errs.FileNotFound, *errs.BlockNotFound:
		return fuse.ENOENT
	case *errs.FileExist:
		return fuse.EEXIST
	case *errs.DirNotEmpty:
		return fuse.ENOTEMPTY
	case *errs.InvalidOffset:
		return fuse.EINVAL
	case *errs.NoSpaceLeft:
		return fuse.ENOSPC
	case *errs.NameTooLong:
		return fuse.Errno(syscall.ENAMETOOLONG)
	case *errs.Unimplemented:
		return fuse.ENOSYS
	case *errs.Serialize, *errs.KvBackend, *errs.UnknownError:
		return fuse.EIO
	default:
		return fuse.EIO
	}
}

// errorCategory reduces an engine error to a small, bounded label for the
// fs_error_category metric attribute, avoiding one time series per distinct
// error message.
func errorCategory(err error) string {
	switch err.(type) {
	case *errs.InodeNotFound, *errs.FileNotFound, *errs.BlockNotFound:
		return "not_found"
	case *errs.FileExist:
		return "exist"
	case *errs.DirNotEmpty:
		return "not_empty"
	case *errs.InvalidOffset:
		return "invalid_argument"
	case *errs.NoSpaceLeft:
		return "no_space"
	case *errs.NameTooLong:
		return "name_too_long"
	case *errs.Unimplemented:
		return "unimplemented"
	case *errs.Serialize, *errs.KvBackend:
		return "backend"
	default:
		return "unknown"
	}
}
