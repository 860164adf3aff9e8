// Command cvfs manipulates cvfs container files from the shell: create a
// container, import and extract files, and walk the namespace.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/KarpelesLab/cvfs"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cvfs:", err)
		os.Exit(1)
	}
}

// rootCommands holds the subcommands wired into the root command. The base
// set is appended here; build-tag gated files (e.g. mount_fuse.go) append
// their own subcommands via init().
var rootCommands = []*cobra.Command{
	newCreateCmd(),
	newMkdirCmd(),
	newAddCmd(),
	newExtractCmd(),
	newCopyCmd(),
	newMoveCmd(),
	newRemoveCmd(),
	newListCmd(),
	newInfoCmd(),
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cvfs",
		Short:         "Create, inspect and manipulate cvfs container images",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "config file path (no subcommand reads it)")
	viper.SetEnvPrefix("CVFS")
	viper.AutomaticEnv()

	root.AddCommand(rootCommands...)
	return root
}

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <container>",
		Short: "Create a new, empty container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cvfs.Create(args[0])
		},
	}
}

func withOpenContainer(path string, fn func(c *cvfs.Container) error) error {
	c, err := cvfs.Open(path)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <container> <path>",
		Short: "Create a directory inside the container",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOpenContainer(args[0], func(c *cvfs.Container) error {
				return c.Mkdir(args[1])
			})
		},
	}
}

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <container> <fs-path> <host-file>",
		Short: "Import a host file into the container",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOpenContainer(args[0], func(c *cvfs.Container) error {
				return c.AddFile(args[1], args[2])
			})
		},
	}
}

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <container> <fs-path> <host-file>",
		Short: "Extract a file from the container to the host filesystem",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOpenContainer(args[0], func(c *cvfs.Container) error {
				return c.ExtractFile(args[1], args[2])
			})
		},
	}
}

func newCopyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cp <container> <src> <dest>",
		Short: "Copy a file within the container",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOpenContainer(args[0], func(c *cvfs.Container) error {
				return c.CopyFile(args[1], args[2])
			})
		},
	}
}

func newMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <container> <src> <dest>",
		Short: "Move or rename a file or directory within the container",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOpenContainer(args[0], func(c *cvfs.Container) error {
				return c.MoveFile(args[1], args[2])
			})
		},
	}
}

func newRemoveCmd() *cobra.Command {
	var recursive, force bool
	cmd := &cobra.Command{
		Use:   "rm <container> <path>",
		Short: "Delete a file or directory within the container",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOpenContainer(args[0], func(c *cvfs.Container) error {
				return c.Delete(args[1], recursive, force)
			})
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "delete a non-empty directory and its contents")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "ignore missing paths and non-empty directories")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <container> [path]",
		Short: "List the children of a directory (default: /)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) == 2 {
				path = args[1]
			}
			return withOpenContainer(args[0], func(c *cvfs.Container) error {
				children, err := c.List(path)
				if err != nil {
					return err
				}
				return printListing(cmd.OutOrStdout(), children)
			})
		},
	}
}

func printListing(w io.Writer, children []cvfs.Inode) error {
	for _, ino := range children {
		kind := "FILE"
		if ino.IsDirectory {
			kind = "DIR "
		}
		if _, err := fmt.Fprintf(w, "%s %10d  %s  %s\n", kind, ino.Size, ino.Modified.Format("2006-01-02 15:04"), ino.Filename); err != nil {
			return err
		}
	}
	return nil
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <container>",
		Short: "Show superblock counters for a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOpenContainer(args[0], func(c *cvfs.Container) error {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "files: %d / %d\n", c.NumFiles(), cvfs.MaxFiles)
				return err
			})
		},
	}
}
