package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kvfuse-project/kvfuse/cfg"
)

var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Write the MetaStatic format record and create the root directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if configFileErr != nil {
			return configFileErr
		}
		if unmarshalErr != nil {
			return unmarshalErr
		}
		if err := cfg.ValidateConfig(&mountConfig); err != nil {
			return err
		}
		return runFormat(mountConfig)
	},
}

func runFormat(c cfg.Config) error {
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

	fmt.Printf("formatted %s\n", c.Store.Path)
	return nil
}
