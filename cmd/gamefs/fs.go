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
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	gamefs "github.com/ZaparooProject/go-gamefs"
)

func newPathsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "paths [path-id]",
		Short: "List mounted search paths in priority order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, err := a.filesystem()
			if err != nil {
				return err
			}
			pathID := ""
			if len(args) == 1 {
				pathID = args[0]
			}
			infos := fsys.SearchPaths(pathID)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), infos)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tPATH ID\tKIND\tREFS\tPATH")
			for i, info := range infos {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", i, info.PathID, info.Kind, info.Refs, info.Path)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newCatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <name>",
		Short: "Write a resolved file to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, err := a.filesystem()
			if err != nil {
				return err
			}
			h, err := fsys.Open(args[0], a.pathID, 0)
			if err != nil {
				return err
			}
			if _, err := io.Copy(cmd.OutOrStdout(), h); err != nil {
				_ = h.Close()
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			return h.Close()
		},
	}
}

func newFindCmd(a *app) *cobra.Command {
	var (
		asJSON   bool
		packOnly bool
		noPack   bool
	)
	cmd := &cobra.Command{
		Use:   "find <name>",
		Short: "Show where a name resolves",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, err := a.filesystem()
			if err != nil {
				return err
			}
			var flags gamefs.OpenFlags
			if packOnly {
				flags |= gamefs.PackOnly
			}
			if noPack {
				flags |= gamefs.NoPack
			}
			res, err := fsys.Find(args[0], a.pathID, flags)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Path: %s\n", res.Path)
			fmt.Fprintf(out, "Path ID: %s\n", res.PathID)
			fmt.Fprintf(out, "Source: %s\n", res.Source)
			if res.Archive != "" {
				fmt.Fprintf(out, "Archive: %s\n", res.Archive)
			}
			fmt.Fprintf(out, "Size: %d\n", res.Size)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&packOnly, "pack-only", false, "only consider archived files")
	cmd.Flags().BoolVar(&noPack, "no-pack", false, "only consider loose files")
	return cmd
}

func newLsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls <pattern>",
		Short: "List names matching a wildcard pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, err := a.filesystem()
			if err != nil {
				return err
			}
			names, err := fsys.Glob(args[0], a.pathID)
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}
