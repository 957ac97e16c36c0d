package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the sequences of the sequence directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.manager.List(cmd.Context())
		if err != nil {
			return err
		}
		active := a.manager.Status().Active

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tMODIFIED\tKEYFRAMES\tSTATUS")
		for _, e := range entries {
			status := ""
			keyframes := "-"
			switch {
			case e.Corrupt():
				status = "corrupt: " + e.Err.Error()
			case e.Name == active:
				status = "active"
			}
			if e.Sequence != nil {
				keyframes = fmt.Sprint(e.Sequence.KeyframeCount())
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, e.ModTime.Format(time.DateTime), keyframes, status)
		}
		return w.Flush()
	},
}

var newCmd = &cobra.Command{
	Use:   "new NAME",
	Short: "Create an empty sequence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.manager.Create(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("created %s in %s\n", args[0], a.cfg.SequenceDir)
		return nil
	},
}

var copyCmd = &cobra.Command{
	Use:   "copy NAME",
	Short: "Copy the most recent (or --from) sequence under a new name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if from, _ := cmd.Flags().GetString("from"); from != "" {
			if err := a.manager.Switch(cmd.Context(), from); err != nil {
				return err
			}
		}
		src := a.manager.Status().Active
		if err := a.manager.Copy(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("copied %s to %s\n", src, args[0])
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a sequence file and its mirrored copy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.manager.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore [NAME]",
	Short: "List mirrored sequences, or restore one into the sequence directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 0 {
			names, err := a.manager.MirrorList(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		}
		if err := a.manager.Restore(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("restored %s to %s\n", args[0], a.cfg.SequenceDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd, newCmd, copyCmd, deleteCmd, restoreCmd)
	copyCmd.Flags().String("from", "", "Sequence to copy")
}
