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

	"github.com/spf13/cobra"

	"github.com/ZaparooProject/go-gamefs/chunked"
)

func newManifestCmd(a *app) *cobra.Command {
	var fraction int64
	cmd := &cobra.Command{
		Use:   "manifest <vpk> <out>",
		Short: "Record the chunk hashes of a chunked archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := chunked.OpenVPK(args[0], chunked.WithLogger(a.log), chunked.WithFractionSize(fraction))
			if err != nil {
				return err
			}
			defer func() { _ = v.Close() }()

			m, err := chunked.BuildManifest(v, fraction)
			if err != nil {
				return err
			}
			if err := chunked.SaveManifest(args[1], m); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %d chunk hashes\n", len(m.Chunks))
			return nil
		},
	}
	cmd.Flags().Int64Var(&fraction, "fraction", chunked.DefaultFractionSize, "bytes covered by each hash")
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <vpk> <manifest>",
		Short: "Check a chunked archive against a recorded manifest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := chunked.LoadManifest(args[1])
			if err != nil {
				return err
			}
			v, err := chunked.OpenVPK(args[0], chunked.WithLogger(a.log), chunked.WithFractionSize(m.FractionSize))
			if err != nil {
				return err
			}
			defer func() { _ = v.Close() }()

			failed, err := chunked.Verify(v, m.Chunks)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, h := range failed {
				fmt.Fprintf(out, "mismatch: %s\n", h)
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d chunks failed: %w", len(failed), len(m.Chunks), chunked.ErrChunkMismatch)
			}
			fmt.Fprintf(out, "%d chunks verified\n", len(m.Chunks))
			return nil
		},
	}
}
