package cmd

import (
	"context"
	"fmt"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/kvfuse-project/kvfuse/cfg"
	"github.com/kvfuse-project/kvfuse/internal/fsbridge"
	"github.com/kvfuse-project/kvfuse/internal/logger"
	"github.com/kvfuse-project/kvfuse/internal/metrics"
)

// runMount opens the store, ensures the root directory exists, and mounts
// the file system at mountPoint, blocking until it is unmounted.
func runMount(c cfg.Config, mountPoint string) error {
	logger.Init(logger.Config{
		Format:     c.Logging.Format,
		Severity:   c.Logging.Severity,
		FilePath:   c.Logging.FilePath,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
	})

	var metricHandle metrics.Handle
	var metricsShutdown metrics.ShutdownFn
	if c.Metrics.Enable {
		var err error
		metricHandle, metricsShutdown, err = metrics.Setup(fmt.Sprintf(":%d", c.Metrics.Port))
		if err != nil {
			return fmt.Errorf("setting up metrics: %w", err)
		}
	} else {
		metricHandle = metrics.NewNoop()
	}

	facade, client, err := buildFacade(c)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := context.Background()
	if err := facade.Format(ctx); err != nil {
		return fmt.Errorf("format: %w", err)
	}

	dirMode, err := cfg.ParseOctal(c.FileSystem.DirMode)
	if err != nil {
		return err
	}
	uid, gid := resolveUidGid(c)
	if err := facade.EnsureRoot(ctx, uint16(dirMode.FileMode().Perm()), uid, gid); err != nil {
		return fmt.Errorf("ensure root: %w", err)
	}

	server := fsbridge.New(facade, metricHandle)
	mountCfg := &fuse.MountConfig{
		FSName:      "kvfuse",
		Subtype:     "kvfuse",
		VolumeName:  "kvfuse",
		ErrorLogger: logger.NewLegacyLogger(logger.ParseSeverity(c.Logging.Severity), "fuse: "),
	}

	logger.Infof("mounting at %q", mountPoint)
	mfs, err := fuse.Mount(mountPoint, fuseutil.NewFileSystemServer(server), mountCfg)
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	err = mfs.Join(ctx)
	if metricsShutdown != nil {
		_ = metricsShutdown(context.Background())
	}
	return err
}
