package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func printLines(w io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

func newScanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Scan the search path and print a summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.open(cmd)
			if err != nil {
				return err
			}
			st := m.Stats(cmd.Context())
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "profile:    %s (supported: %t)\n", st.Profile, st.Supported)
			fmt.Fprintf(w, "containers: %d\n", st.Containers)
			fmt.Fprintf(w, "names:      %d\n", st.Names)
			fmt.Fprintf(w, "doublets:   %d\n", st.Doublets)
			fmt.Fprintf(w, "scan time:  %s\n", st.ScanDuration)
			return nil
		},
	}
}

func newNamesCmd(a *app) *cobra.Command {
	var unused bool
	cmd := &cobra.Command{
		Use:   "names",
		Short: "List every resource name on the search path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.open(cmd)
			if err != nil {
				return err
			}
			if unused {
				printLines(cmd.OutOrStdout(), m.UnusedNames(cmd.Context()))
				return nil
			}
			printLines(cmd.OutOrStdout(), m.Names(cmd.Context()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&unused, "unused", false, "only list names no lookup asked for")
	return cmd
}

func newDoubletsCmd(a *app) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "doublets",
		Short: "List names provided by more than one container",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.open(cmd)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, name := range m.Doublets(cmd.Context()) {
				fmt.Fprintln(w, name)
				if !verbose {
					continue
				}
				for n := 1; ; n++ {
					c, ok := m.Doublet(cmd.Context(), name, n)
					if !ok {
						break
					}
					fmt.Fprintf(w, "  %d: %s\n", n, c.Path)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list the providing containers")
	return cmd
}

func newIncompatibleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "incompatible",
		Short: "List doublets whose copies differ in content",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.open(cmd)
			if err != nil {
				return err
			}
			names, err := m.IncompatibleNames(cmd.Context())
			if err != nil {
				return err
			}
			printLines(cmd.OutOrStdout(), names)
			return nil
		},
	}
}

func newWhichCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "which <name>",
		Short: "Show the container a name resolves from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.open(cmd)
			if err != nil {
				return err
			}
			l, ok := m.WhichResource(cmd.Context(), args[0])
			if !ok {
				return fmt.Errorf("%s: not found on the search path", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), l)
			return nil
		},
	}
}

func newDumpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dump <dir>",
		Short: "Write the diagnostic reports to a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.open(cmd)
			if err != nil {
				return err
			}
			if err := m.Dump(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reports written to %s\n", args[0])
			return nil
		},
	}
}
