package cmd

import (
	"fmt"

	"github.com/kvfuse-project/kvfuse/cfg"
	"github.com/kvfuse-project/kvfuse/internal/engine"
	"github.com/kvfuse-project/kvfuse/internal/keys"
	"github.com/kvfuse-project/kvfuse/internal/kv"
	"github.com/kvfuse-project/kvfuse/internal/kv/boltkv"
	"github.com/kvfuse-project/kvfuse/internal/kvblock"
)

var keyspacePrefix = []byte("kvfuse")

// buildFacade opens the configured bbolt store and wraps it in an
// engine.Facade. Callers get back the client too, since both mount and
// format Close it when they are done.
func buildFacade(c cfg.Config) (*engine.Facade, kv.Client, error) {
	client, err := boltkv.Open(c.Store.Path, c.Store.NoSync)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}

	kb := keys.NewBuilder(keyspacePrefix)
	engineCfg := engine.Config{
		BlockSize:     c.FileSystem.BlockSizeBytes,
		HashedBlocks:  c.FileSystem.HashedBlocks,
		HashAlgorithm: kvblock.HashAlgorithm,
		MaxSize:       c.FileSystem.MaxSizeBytes,
		MaxNameLen:    c.FileSystem.MaxNameLen,
	}
	facade := engine.NewFacade(client, kb, engineCfg, engine.DefaultRetryPolicy())
	return facade, client, nil
}
