package fsbridge

import (
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"

	"github.com/kvfuse-project/kvfuse/internal/codec"
	"github.com/kvfuse-project/kvfuse/internal/engine"
)

const attributesTTL = time.Second

func entryFor(ino uint64, in *codec.Inode) fuseops.ChildInodeEntry {
	return fuseops.ChildInodeEntry{
		Child:                fuseops.InodeID(ino),
		Attributes:           toAttributes(in),
		AttributesExpiration: time.Now().Add(attributesTTL),
		EntryExpiration:      time.Now().Add(attributesTTL),
	}
}

func (fs *FS) LookUpInode(op *fuseops.LookUpInodeOp) (err error) {
	return fs.recordOp(op.Context(), "lookup_inode", func() error {
		in, err := fs.facade.Lookup(op.Context(), uint64(op.Parent), op.Name)
		if err != nil {
			return toErrno(err)
		}
		op.Entry = entryFor(in.Ino, in)
		return nil
	})
}

func (fs *FS) GetInodeAttributes(op *fuseops.GetInodeAttributesOp) (err error) {
	return fs.recordOp(op.Context(), "get_inode_attributes", func() error {
		in, err := fs.facade.GetAttr(op.Context(), uint64(op.Inode))
		if err != nil {
			return toErrno(err)
		}
		op.Attributes = toAttributes(in)
		op.AttributesExpiration = time.Now().Add(attributesTTL)
		return nil
	})
}

func (fs *FS) SetInodeAttributes(op *fuseops.SetInodeAttributesOp) (err error) {
	var patch engine.AttrPatch
	if op.Size != nil {
		patch.Size = op.Size
	}
	if op.Mode != nil {
		perm := uint16(*op.Mode & 0o7777)
		patch.Perm = &perm
	}
	if op.Atime != nil {
		patch.Atime = op.Atime
	}
	if op.Mtime != nil {
		patch.Mtime = op.Mtime
	}

	in, err := fs.facade.SetAttr(op.Context(), uint64(op.Inode), patch)
	if err != nil {
		return toErrno(err)
	}
	op.Attributes = toAttributes(in)
	op.AttributesExpiration = time.Now().Add(attributesTTL)
	return nil
}

func (fs *FS) ForgetInode(op *fuseops.ForgetInodeOp) (err error) {
	// Lookup counts are not separately tracked: Nlink/OpenedFh already
	// govern inode lifetime (spec.md §3 invariant 3), so forgetting a
	// lookup reference is a no-op here.
	return nil
}

func (fs *FS) MkDir(op *fuseops.MkDirOp) (err error) {
	return fs.recordOp(op.Context(), "mkdir", func() error {
		perm := uint16(op.Mode & 0o7777)
		in, err := fs.facade.MkDir(op.Context(), uint64(op.Parent), op.Name, perm, op.Header().Uid, op.Header().Gid)
		if err != nil {
			return toErrno(err)
		}
		op.Entry = entryFor(in.Ino, in)
		return nil
	})
}

func (fs *FS) MkNode(op *fuseops.MkNodeOp) (err error) {
	perm := uint16(op.Mode & 0o7777)
	kind := fileModeToKind(op.Mode)
	in, err := fs.facade.MkNod(op.Context(), uint64(op.Parent), op.Name, kind, perm, op.Header().Uid, op.Header().Gid, 0)
	if err != nil {
		return toErrno(err)
	}
	op.Entry = entryFor(in.Ino, in)
	return nil
}

func (fs *FS) CreateFile(op *fuseops.CreateFileOp) (err error) {
	return fs.recordOp(op.Context(), "create_file", func() error {
		perm := uint16(op.Mode & 0o7777)
		in, err := fs.facade.MkNod(op.Context(), uint64(op.Parent), op.Name, codec.KindRegular, perm, op.Header().Uid, op.Header().Gid, 0)
		if err != nil {
			return toErrno(err)
		}
		if err = fs.facade.Open(op.Context(), in.Ino); err != nil {
			return toErrno(err)
		}
		op.Entry = entryFor(in.Ino, in)
		op.Handle = fuseops.HandleID(in.Ino)
		return nil
	})
}

func (fs *FS) CreateSymlink(op *fuseops.CreateSymlinkOp) (err error) {
	in, err := fs.facade.CreateSymlink(op.Context(), uint64(op.Parent), op.Name, op.Target, op.Header().Uid, op.Header().Gid)
	if err != nil {
		return toErrno(err)
	}
	op.Entry = entryFor(in.Ino, in)
	return nil
}

func (fs *FS) CreateLink(op *fuseops.CreateLinkOp) (err error) {
	in, err := fs.facade.Link(op.Context(), uint64(op.Target), uint64(op.Parent), op.Name)
	if err != nil {
		return toErrno(err)
	}
	op.Entry = entryFor(in.Ino, in)
	return nil
}

func (fs *FS) ReadSymlink(op *fuseops.ReadSymlinkOp) (err error) {
	target, err := fs.facade.ReadSymlink(op.Context(), uint64(op.Inode))
	if err != nil {
		return toErrno(err)
	}
	op.Target = target
	return nil
}

func (fs *FS) RmDir(op *fuseops.RmDirOp) (err error) {
	if err = fs.facade.RmDir(op.Context(), uint64(op.Parent), op.Name); err != nil {
		return toErrno(err)
	}
	return nil
}

func (fs *FS) Unlink(op *fuseops.UnlinkOp) (err error) {
	return fs.recordOp(op.Context(), "unlink", func() error {
		if err := fs.facade.Unlink(op.Context(), uint64(op.Parent), op.Name); err != nil {
			return toErrno(err)
		}
		return nil
	})
}

func (fs *FS) Rename(op *fuseops.RenameOp) (err error) {
	flags := engine.RenameFlags{
		NoReplace: op.Flags&fuse.RenameNoReplace != 0,
		Exchange:  op.Flags&fuse.RenameExchange != 0,
	}
	err = fs.facade.Rename(op.Context(), uint64(op.OldParent), op.OldName, uint64(op.NewParent), op.NewName, flags)
	if err != nil {
		return toErrno(err)
	}
	return nil
}

// Access always succeeds: per DESIGN.md this is a deliberate trivial stub,
// matching the original implementation's unconditional Ok(()).
func (fs *FS) Access(op *fuseops.AccessOp) (err error) {
	return nil
}
