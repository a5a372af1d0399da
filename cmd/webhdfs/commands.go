package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/webhdfs/webhdfs_sdk_go/pkg/webhdfs"
)

// refused reports a call the name node answered with a negative.
func refused(op, path string) error {
	return fmt.Errorf("%s %s: refused by name node", op, path)
}

func readLocal(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}

func putCmd(a *app) *cobra.Command {
	var opts webhdfs.CreateOptions
	cmd := &cobra.Command{
		Use:   "put LOCAL REMOTE",
		Short: "Upload a local file (- for stdin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readLocal(cmd, args[0])
			if err != nil {
				return err
			}
			ok, err := a.client.Create(cmd.Context(), args[1], data, &opts)
			if err != nil {
				return err
			}
			if !ok {
				return refused("put", args[1])
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&opts.Overwrite, "overwrite", "f", false, "replace an existing file")
	cmd.Flags().Int64Var(&opts.BlockSize, "blocksize", 0, "block size in bytes")
	cmd.Flags().IntVar(&opts.Replication, "replication", 0, "replication factor")
	cmd.Flags().StringVar(&opts.Permission, "permission", "", "octal permission")
	cmd.Flags().IntVar(&opts.BufferSize, "buffer-size", 0, "buffer size in bytes")
	return cmd
}

func appendCmd(a *app) *cobra.Command {
	var bufferSize int
	cmd := &cobra.Command{
		Use:   "append LOCAL REMOTE",
		Short: "Append a local file (- for stdin) to a remote file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readLocal(cmd, args[0])
			if err != nil {
				return err
			}
			ok, err := a.client.Append(cmd.Context(), args[1], data, bufferSize)
			if err != nil {
				return err
			}
			if !ok {
				return refused("append", args[1])
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&bufferSize, "buffer-size", 0, "buffer size in bytes (default: payload length)")
	return cmd
}

func catCmd(a *app) *cobra.Command {
	var opts webhdfs.OpenOptions
	cmd := &cobra.Command{
		Use:   "cat REMOTE",
		Short: "Print a remote file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.client.Open(cmd.Context(), args[0], &opts)
			if err != nil {
				return err
			}
			_, err = a.out.Write(data)
			return err
		},
	}
	cmd.Flags().Int64Var(&opts.Offset, "offset", 0, "start offset in bytes")
	cmd.Flags().Int64Var(&opts.Length, "length", 0, "number of bytes to read")
	return cmd
}

func mkdirCmd(a *app) *cobra.Command {
	var permission string
	cmd := &cobra.Command{
		Use:   "mkdir PATH",
		Short: "Create a directory and any missing parents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := a.client.Mkdirs(cmd.Context(), args[0], permission)
			if err != nil {
				return err
			}
			if !ok {
				return refused("mkdir", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&permission, "permission", webhdfs.DefaultPermission, "octal permission")
	return cmd
}

func mvCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mv SRC DST",
		Short: "Rename a file or directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := a.client.Rename(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if !ok {
				return refused("mv", args[0])
			}
			return nil
		},
	}
}

func rmCmd(a *app) *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "rm PATH",
		Short: "Delete a file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := a.client.Delete(cmd.Context(), args[0], recursive)
			if err != nil {
				return err
			}
			if !ok {
				return refused("rm", args[0])
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "delete directories and their contents")
	return cmd
}

func statCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stat PATH",
		Short: "Show the status of a file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			obj, err := a.client.GetFileStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(obj, func(w io.Writer) error {
				st, err := webhdfs.DecodeFileStatus(obj)
				if err != nil {
					return err
				}
				st.PathSuffix = ""
				return writeStatuses(w, args[0], []webhdfs.FileStatus{*st})
			})
		},
	}
}

func lsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls PATH",
		Short: "List a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			obj, err := a.client.ListStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(obj, func(w io.Writer) error {
				entries, err := webhdfs.DecodeListing(obj)
				if err != nil {
					return err
				}
				return writeStatuses(w, args[0], entries)
			})
		},
	}
}

func homeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Print the home directory of the acting user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := a.client.GetHomeDirectory(cmd.Context())
			if err != nil {
				return err
			}
			if home == "" {
				return refused("home", "/")
			}
			return a.render(map[string]any{"Path": home}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, home)
				return err
			})
		},
	}
}

func chownCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chown OWNER[:GROUP] PATH",
		Short: "Change the owner and optionally the group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, group, _ := strings.Cut(args[0], ":")
			ok, err := a.client.SetOwner(cmd.Context(), args[1], owner, group)
			if err != nil {
				return err
			}
			if !ok {
				return refused("chown", args[1])
			}
			return nil
		},
	}
}

func chmodCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chmod MODE PATH",
		Short: "Change the octal permission",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := a.client.SetPermission(cmd.Context(), args[1], args[0])
			if err != nil {
				return err
			}
			if !ok {
				return refused("chmod", args[1])
			}
			return nil
		},
	}
}

func duCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "du PATH",
		Short: "Summarise the space used under a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			obj, err := a.client.GetContentSummary(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(obj, func(w io.Writer) error {
				cs, err := webhdfs.DecodeContentSummary(obj)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%s\n", cs.Length, cs.SpaceConsumed, cs.DirectoryCount, cs.FileCount, args[0])
				return tw.Flush()
			})
		},
	}
}
