package cmd

import (
	"fmt"
	"os"

	"github.com/kvfuse-project/kvfuse/cfg"
	"github.com/kvfuse-project/kvfuse/internal/perms"
)

// resolveUidGid applies the configured --uid/--gid overrides on top of the
// mounting process's real identity, warning if kvfuse runs as root without
// an explicit override (every inode would otherwise end up root-owned).
func resolveUidGid(c cfg.Config) (uid, gid uint32) {
	uid, gid, _ = perms.MyUserAndGroup()

	if uid == 0 && c.FileSystem.Uid < 0 {
		fmt.Fprintln(os.Stderr, "WARNING: kvfuse invoked as root; all inodes will be owned by root unless --uid is set.")
	}

	if c.FileSystem.Uid >= 0 {
		uid = uint32(c.FileSystem.Uid)
	}
	if c.FileSystem.Gid >= 0 {
		gid = uint32(c.FileSystem.Gid)
	}
	return uid, gid
}
