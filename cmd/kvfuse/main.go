// Command kvfuse mounts a POSIX file system whose state lives entirely in
// an external key-value store.
package main

import "github.com/kvfuse-project/kvfuse/cmd"

func main() {
	cmd.Execute()
}
