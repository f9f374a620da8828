package engine

import (
	"context"

	"github.com/kvfuse-project/kvfuse/internal/codec"
	"github.com/kvfuse-project/kvfuse/internal/errs"
	"github.com/kvfuse-project/kvfuse/internal/keys"
	"github.com/kvfuse-project/kvfuse/internal/kv"
)

func (f *Facade) getDirectory(ctx context.Context, txn kv.Txn, ino uint64) (*codec.Directory, error) {
	v, ok, err := txn.Get(ctx, f.kb.Block(ino, 0))
	if err != nil {
		return nil, &errs.KvBackend{Msg: err.Error()}
	}
	if !ok {
		return &codec.Directory{}, nil
	}
	d, err := codec.DecodeDirectory(v)
	if err != nil {
		return nil, &errs.Serialize{Target: "Directory", Encoding: "gob", Msg: err.Error()}
	}
	return d, nil
}

func (f *Facade) putDirectory(ctx context.Context, txn kv.Txn, ino uint64, d *codec.Directory) error {
	v, err := codec.EncodeDirectory(d)
	if err != nil {
		return &errs.Serialize{Target: "Directory", Encoding: "gob", Msg: err.Error()}
	}
	if err := txn.Put(ctx, f.kb.Block(ino, 0), v); err != nil {
		return &errs.KvBackend{Msg: err.Error()}
	}
	return nil
}

func (f *Facade) lookupIndex(ctx context.Context, txn kv.Txn, parent uint64, name string) (uint64, bool, error) {
	v, ok, err := txn.Get(ctx, f.kb.Index(parent, []byte(name)))
	if err != nil {
		return 0, false, &errs.KvBackend{Msg: err.Error()}
	}
	if !ok {
		return 0, false, nil
	}
	ix, err := codec.DecodeIndex(v)
	if err != nil {
		return 0, false, &errs.Serialize{Target: "Index", Encoding: "gob", Msg: err.Error()}
	}
	return ix.Ino, true, nil
}

func (f *Facade) putIndex(ctx context.Context, txn kv.Txn, parent uint64, name string, ino uint64) error {
	v, err := codec.EncodeIndex(&codec.Index{Ino: ino})
	if err != nil {
		return &errs.Serialize{Target: "Index", Encoding: "gob", Msg: err.Error()}
	}
	if err := txn.Put(ctx, f.kb.Index(parent, []byte(name)), v); err != nil {
		return &errs.KvBackend{Msg: err.Error()}
	}
	return nil
}

func (f *Facade) deleteIndex(ctx context.Context, txn kv.Txn, parent uint64, name string) error {
	if err := txn.Delete(ctx, f.kb.Index(parent, []byte(name))); err != nil {
		return &errs.KvBackend{Msg: err.Error()}
	}
	return nil
}

func removeDirItem(d *codec.Directory, name string) *codec.Directory {
	out := &codec.Directory{Items: make([]codec.DirItem, 0, len(d.Items))}
	for _, it := range d.Items {
		if it.Name != name {
			out.Items = append(out.Items, it)
		}
	}
	return out
}

// makeInode is the shared allocation path for mknod/mkdir/create/symlink:
// allocate an ino, link it into the parent directory and index (unless
// parent is the filesystem root's own creation), then save the new Inode.
func (f *Facade) makeInode(ctx context.Context, txn kv.Txn, parent uint64, name string, kind codec.Kind, perm uint16, uid, gid uint32, rdev uint32) (*codec.Inode, error) {
	if err := f.checkName(name); err != nil {
		return nil, err
	}

	meta, err := f.getMeta(ctx, txn)
	if err != nil {
		return nil, err
	}
	if err := f.checkSpaceLeft(meta, f.cfg.BlockSize); err != nil {
		return nil, err
	}

	if parent >= keys.ROOT {
		if _, exists, err := f.lookupIndex(ctx, txn, parent, name); err != nil {
			return nil, err
		} else if exists {
			return nil, &errs.FileExist{Name: name}
		}
	}

	ino := meta.InodeNext
	meta.InodeNext++
	if err := f.putMeta(ctx, txn, meta); err != nil {
		return nil, err
	}

	if parent >= keys.ROOT {
		if err := f.putIndex(ctx, txn, parent, name, ino); err != nil {
			return nil, err
		}
		dir, err := f.getDirectory(ctx, txn, parent)
		if err != nil {
			return nil, err
		}
		dir.Items = append(dir.Items, codec.DirItem{Ino: ino, Name: name, Kind: kind})
		if err := f.putDirectory(ctx, txn, parent, dir); err != nil {
			return nil, err
		}
	}

	t := now()
	in := &codec.Inode{
		Ino:     ino,
		Kind:    kind,
		Perm:    perm,
		Uid:     uid,
		Gid:     gid,
		Rdev:    rdev,
		Nlink:   1,
		Atime:   t,
		Mtime:   t,
		Ctime:   t,
		Crtime:  t,
		Blksize: uint32(f.cfg.BlockSize),
	}
	if err := f.putInode(ctx, txn, in); err != nil {
		return nil, err
	}
	return in, nil
}

// MkNod creates a non-directory inode (regular file, FIFO, socket, device)
// under parent.
func (f *Facade) MkNod(ctx context.Context, parent uint64, name string, kind codec.Kind, perm uint16, uid, gid, rdev uint32) (*codec.Inode, error) {
	var out *codec.Inode
	err := f.withTxn(ctx, func(ctx context.Context, txn kv.Txn) error {
		in, err := f.makeInode(ctx, txn, parent, name, kind, perm, uid, gid, rdev)
		if err != nil {
			return err
		}
		out = in
		return nil
	})
	return out, err
}

// MkDir creates a new directory under parent, with "." linked to itself
// and ".." linked to parent, per spec.md §4.7.
func (f *Facade) MkDir(ctx context.Context, parent uint64, name string, perm uint16, uid, gid uint32) (*codec.Inode, error) {
	var out *codec.Inode
	err := f.withTxn(ctx, func(ctx context.Context, txn kv.Txn) error {
		in, err := f.makeInode(ctx, txn, parent, name, codec.KindDirectory, perm, uid, gid, 0)
		if err != nil {
			return err
		}
		dir := &codec.Directory{Items: []codec.DirItem{
			{Ino: in.Ino, Name: ".", Kind: codec.KindDirectory},
			{Ino: parent, Name: "..", Kind: codec.KindDirectory},
		}}
		if err := f.putDirectory(ctx, txn, in.Ino, dir); err != nil {
			return err
		}
		out = in
		return nil
	})
	return out, err
}

// CreateSymlink creates a symlink whose target is stored inline on the
// Inode record (it is never promoted to block storage, regardless of
// length, since symlink targets are bounded path strings in practice).
func (f *Facade) CreateSymlink(ctx context.Context, parent uint64, name, target string, uid, gid uint32) (*codec.Inode, error) {
	var out *codec.Inode
	err := f.withTxn(ctx, func(ctx context.Context, txn kv.Txn) error {
		in, err := f.makeInode(ctx, txn, parent, name, codec.KindSymlink, 0o777, uid, gid, 0)
		if err != nil {
			return err
		}
		in.InlineData = []byte(target)
		in.Size = uint64(len(target))
		if err := f.putInode(ctx, txn, in); err != nil {
			return err
		}
		out = in
		return nil
	})
	return out, err
}

// ReadSymlink returns a symlink inode's target.
func (f *Facade) ReadSymlink(ctx context.Context, ino uint64) (string, error) {
	var target string
	err := f.withTxn(ctx, func(ctx context.Context, txn kv.Txn) error {
		in, err := f.getInode(ctx, txn, ino)
		if err != nil {
			return err
		}
		target = string(in.InlineData)
		return nil
	})
	return target, err
}

// Lookup resolves (parent, name) to its Inode.
func (f *Facade) Lookup(ctx context.Context, parent uint64, name string) (*codec.Inode, error) {
	var out *codec.Inode
	err := f.withTxn(ctx, func(ctx context.Context, txn kv.Txn) error {
		ino, ok, err := f.lookupIndex(ctx, txn, parent, name)
		if err != nil {
			return err
		}
		if !ok {
			return &errs.FileNotFound{Name: name}
		}
		in, err := f.getInode(ctx, txn, ino)
		if err != nil {
			return err
		}
		out = in
		return nil
	})
	return out, err
}

// ReadDir returns the ordered entries of a directory inode, including the
// synthetic "." and ".." entries.
func (f *Facade) ReadDir(ctx context.Context, ino uint64) ([]codec.DirItem, error) {
	var out []codec.DirItem
	err := f.withTxn(ctx, func(ctx context.Context, txn kv.Txn) error {
		dir, err := f.getDirectory(ctx, txn, ino)
		if err != nil {
			return err
		}
		out = dir.Items
		return nil
	})
	return out, err
}

// Link adds a new (newparent, newname) name for an existing inode,
// displacing any existing entry at that destination first (spec.md §4.7).
func (f *Facade) Link(ctx context.Context, ino, newparent uint64, newname string) (*codec.Inode, error) {
	var out *codec.Inode
	err := f.withTxn(ctx, func(ctx context.Context, txn kv.Txn) error {
		if err := f.checkName(newname); err != nil {
			return err
		}
		if err := f.displaceIfPresent(ctx, txn, newparent, newname); err != nil {
			return err
		}

		in, err := f.getInode(ctx, txn, ino)
		if err != nil {
			return err
		}

		if err := f.putIndex(ctx, txn, newparent, newname, ino); err != nil {
			return err
		}
		dir, err := f.getDirectory(ctx, txn, newparent)
		if err != nil {
			return err
		}
		dir.Items = append(dir.Items, codec.DirItem{Ino: ino, Name: newname, Kind: in.Kind})
		if err := f.putDirectory(ctx, txn, newparent, dir); err != nil {
			return err
		}

		in.Nlink++
		in.Ctime = now()
		if err := f.putInode(ctx, txn, in); err != nil {
			return err
		}
		out = in
		return nil
	})
	return out, err
}

// displaceIfPresent removes whatever currently resolves at (parent, name),
// as either rmdir or unlink depending on its kind, used by link/rename when
// the destination name is already taken.
func (f *Facade) displaceIfPresent(ctx context.Context, txn kv.Txn, parent uint64, name string) error {
	existingIno, exists, err := f.lookupIndex(ctx, txn, parent, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	existing, err := f.getInode(ctx, txn, existingIno)
	if err != nil {
		return err
	}
	if existing.Kind == codec.KindDirectory {
		return f.rmdirLocked(ctx, txn, parent, name)
	}
	return f.unlinkLocked(ctx, txn, parent, name)
}

func (f *Facade) unlinkLocked(ctx context.Context, txn kv.Txn, parent uint64, name string) error {
	ino, exists, err := f.lookupIndex(ctx, txn, parent, name)
	if err != nil {
		return err
	}
	if !exists {
		return &errs.FileNotFound{Name: name}
	}

	if err := f.deleteIndex(ctx, txn, parent, name); err != nil {
		return err
	}
	dir, err := f.getDirectory(ctx, txn, parent)
	if err != nil {
		return err
	}
	dir = removeDirItem(dir, name)
	if err := f.putDirectory(ctx, txn, parent, dir); err != nil {
		return err
	}

	in, err := f.getInode(ctx, txn, ino)
	if err != nil {
		return err
	}
	if in.Nlink > 0 {
		in.Nlink--
	}
	in.Ctime = now()
	return f.putInode(ctx, txn, in)
}

// Unlink removes the (parent, name) entry and decrements the target's
// nlink, deleting the Inode once nlink and opened_fh both reach zero.
func (f *Facade) Unlink(ctx context.Context, parent uint64, name string) error {
	return f.withTxn(ctx, func(ctx context.Context, txn kv.Txn) error {
		return f.unlinkLocked(ctx, txn, parent, name)
	})
}

func (f *Facade) rmdirLocked(ctx context.Context, txn kv.Txn, parent uint64, name string) error {
	ino, exists, err := f.lookupIndex(ctx, txn, parent, name)
	if err != nil {
		return err
	}
	if !exists {
		return &errs.FileNotFound{Name: name}
	}

	childDir, err := f.getDirectory(ctx, txn, ino)
	if err != nil {
		return err
	}
	for _, it := range childDir.Items {
		if it.Name != "." && it.Name != ".." {
			return &errs.DirNotEmpty{Name: name}
		}
	}

	if err := f.deleteIndex(ctx, txn, parent, name); err != nil {
		return err
	}
	parentDir, err := f.getDirectory(ctx, txn, parent)
	if err != nil {
		return err
	}
	parentDir = removeDirItem(parentDir, name)
	if err := f.putDirectory(ctx, txn, parent, parentDir); err != nil {
		return err
	}

	in, err := f.getInode(ctx, txn, ino)
	if err != nil {
		return err
	}
	if in.Nlink > 0 {
		in.Nlink--
	}
	in.Ctime = now()
	return f.putInode(ctx, txn, in)
}

// RmDir removes an empty directory entry (containing only "." and "..").
func (f *Facade) RmDir(ctx context.Context, parent uint64, name string) error {
	return f.withTxn(ctx, func(ctx context.Context, txn kv.Txn) error {
		return f.rmdirLocked(ctx, txn, parent, name)
	})
}

// RenameFlags mirrors the POSIX renameat2 no-replace/exchange bits.
type RenameFlags struct {
	NoReplace bool
	Exchange  bool
}

// Rename moves (parent, name) to (newparent, newname), implemented as
// link-then-unlink within one transaction per spec.md §4.7.
func (f *Facade) Rename(ctx context.Context, parent uint64, name string, newparent uint64, newname string, flags RenameFlags) error {
	return f.withTxn(ctx, func(ctx context.Context, txn kv.Txn) error {
		ino, exists, err := f.lookupIndex(ctx, txn, parent, name)
		if err != nil {
			return err
		}
		if !exists {
			return &errs.FileNotFound{Name: name}
		}

		destIno, destExists, err := f.lookupIndex(ctx, txn, newparent, newname)
		if err != nil {
			return err
		}
		if destExists {
			if flags.NoReplace {
				return &errs.FileExist{Name: newname}
			}
			if flags.Exchange {
				return f.exchangeLocked(ctx, txn, parent, name, ino, newparent, newname, destIno)
			}
		}

		if err := f.checkName(newname); err != nil {
			return err
		}
		if err := f.displaceIfPresent(ctx, txn, newparent, newname); err != nil {
			return err
		}

		in, err := f.getInode(ctx, txn, ino)
		if err != nil {
			return err
		}
		if err := f.putIndex(ctx, txn, newparent, newname, ino); err != nil {
			return err
		}
		newDir, err := f.getDirectory(ctx, txn, newparent)
		if err != nil {
			return err
		}
		newDir.Items = append(newDir.Items, codec.DirItem{Ino: ino, Name: newname, Kind: in.Kind})
		if err := f.putDirectory(ctx, txn, newparent, newDir); err != nil {
			return err
		}

		if err := f.deleteIndex(ctx, txn, parent, name); err != nil {
			return err
		}
		oldDir, err := f.getDirectory(ctx, txn, parent)
		if err != nil {
			return err
		}
		oldDir = removeDirItem(oldDir, name)
		return f.putDirectory(ctx, txn, parent, oldDir)
	})
}

// exchangeLocked swaps two existing names in place, honoring RENAME_EXCHANGE
// semantics (neither side is unlinked; both keep their nlink counts).
func (f *Facade) exchangeLocked(ctx context.Context, txn kv.Txn, parent uint64, name string, ino uint64, newparent uint64, newname string, destIno uint64) error {
	srcKind, err := f.getInode(ctx, txn, ino)
	if err != nil {
		return err
	}
	dstKind, err := f.getInode(ctx, txn, destIno)
	if err != nil {
		return err
	}

	if err := f.putIndex(ctx, txn, newparent, newname, ino); err != nil {
		return err
	}
	if err := f.putIndex(ctx, txn, parent, name, destIno); err != nil {
		return err
	}

	newDir, err := f.getDirectory(ctx, txn, newparent)
	if err != nil {
		return err
	}
	for i := range newDir.Items {
		if newDir.Items[i].Name == newname {
			newDir.Items[i].Ino = ino
			newDir.Items[i].Kind = srcKind.Kind
		}
	}
	if err := f.putDirectory(ctx, txn, newparent, newDir); err != nil {
		return err
	}

	oldDir, err := f.getDirectory(ctx, txn, parent)
	if err != nil {
		return err
	}
	for i := range oldDir.Items {
		if oldDir.Items[i].Name == name {
			oldDir.Items[i].Ino = destIno
			oldDir.Items[i].Kind = dstKind.Kind
		}
	}
	return f.putDirectory(ctx, txn, parent, oldDir)
}
