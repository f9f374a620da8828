// Package perms resolves the process's real uid/gid, for use as the
// default owner of every inode when the mounting user doesn't override
// --uid/--gid, adapted from the teacher's internal/perms.
package perms

import "os"

// MyUserAndGroup returns the real uid and gid of the running process.
func MyUserAndGroup() (uid, gid uint32, err error) {
	return uint32(os.Getuid()), uint32(os.Getgid()), nil
}
