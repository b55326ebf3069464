// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of go-gamefs.
//
// go-gamefs is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-gamefs is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-gamefs.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ZaparooProject/go-gamefs/packfile"
)

func newPackCmd(a *app) *cobra.Command {
	var console bool
	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Inspect pack files and levels directly",
	}
	cmd.PersistentFlags().BoolVar(&console, "console", false, "use the console directory layout")

	open := func(path string) (*packfile.Archive, error) {
		opts := []packfile.Option{packfile.WithLogger(a.log), packfile.WithConsoleLayout(console)}
		if strings.EqualFold(filepath.Ext(path), ".bsp") {
			return packfile.OpenLevel(path, opts...)
		}
		return packfile.Open(path, opts...)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ls <pack>",
		Short: "List the directory of a pack file or level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arc, err := open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = arc.Close() }()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tSIZE\tPRELOAD\tNAME")
			for _, e := range arc.Entries() {
				preload := "-"
				if e.HasPreload() {
					preload = "yes"
				}
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", e.Index, e.Length, preload, e.Name)
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "preload <pack>",
		Short: "Report the preload section and string pool of a pack file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arc, err := open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = arc.Close() }()

			covered := 0
			for _, e := range arc.Entries() {
				if e.HasPreload() {
					covered++
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Entries: %d\n", arc.Len())
			fmt.Fprintf(out, "Preload resident: %t\n", arc.HasPreload())
			fmt.Fprintf(out, "Preloaded entries: %d\n", covered)
			if n := arc.KVPoolLen(); n > 0 {
				fmt.Fprintf(out, "String pool: %d strings, key %#08x\n", n, arc.KVPoolKey())
			}
			return nil
		},
	})
	return cmd
}
