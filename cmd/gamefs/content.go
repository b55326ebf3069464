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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ZaparooProject/go-gamefs/mount"
)

func newPlanCmd(a *app) *cobra.Command {
	var apply bool
	cmd := &cobra.Command{
		Use:   "plan <root>",
		Short: "Show the mount order of a content root",
		Long: `plan scans a content root for the patch pack, the update overlay and
downloadable content packages and prints the search paths they mount to,
highest priority first. With --apply the plan is mounted and the resulting
search paths are listed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := mount.Discover(args[0], mount.Capabilities{PathID: a.pathID}, mount.WithLogger(a.log))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, c := range plan.Corrupt {
				fmt.Fprintf(out, "corrupt: %s: %s\n", c.Dir, c.Reason)
			}
			if !apply {
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "#\tTAG\tPATH ID\tPATH")
				for i, s := range plan.Steps {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i, s.Tag, s.PathID, s.Path)
				}
				return tw.Flush()
			}

			fsys, err := a.filesystem()
			if err != nil {
				return err
			}
			n, err := plan.Apply(fsys)
			fmt.Fprintf(out, "mounted %d of %d steps\n", n, len(plan.Steps))
			return err
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "mount the plan")
	return cmd
}

func newInstallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "install <package> <root>",
		Short: "Unpack a downloadable content package into a content root",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg, err := mount.Install(args[0], args[1], mount.Capabilities{}, mount.WithLogger(a.log))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "installed package %d (%s) into %s\n",
				pkg.Number, pkg.Manifest.Name, pkg.Dir)
			return nil
		},
	}
}
