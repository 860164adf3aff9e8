//go:build fuse

package main

import (
	"github.com/spf13/cobra"

	"github.com/KarpelesLab/cvfs"
	"github.com/KarpelesLab/cvfs/internal/fuseadapter"
)

func init() {
	rootCommands = append(rootCommands, newMountCmd())
}

func newMountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mount <container> <mountpoint>",
		Short: "Mount the container read-only at mountpoint using FUSE",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cvfs.Open(args[0])
			if err != nil {
				return err
			}
			defer c.Close()
			return fuseadapter.Mount(c, args[1])
		},
	}
}
