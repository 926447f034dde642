/*
Copyright © 2025 Dmitry Mozzherin <dmozzherin@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/gnames/gn"
	"github.com/gnames/gnnub/internal/iolookup"
	"github.com/gnames/gnnub/pkg/ent/usage"
	"github.com/spf13/cobra"
)

// getLookupCmd returns the lookup command.
func getLookupCmd() *cobra.Command {
	var limit int

	lookupCmd := &cobra.Command{
		Use:   "lookup <prefix>",
		Short: "List backbone names by a canonical name prefix",
		Long: `Print backbone usages which canonical names start with a prefix.

The prefix is case-insensitive and ignores diacritics. Every line holds
the backbone key, the canonical name with authorship, the rank and the
kingdom separated by tabs.

Examples:
  gnnub lookup "Abies al"
  gnnub lookup Oenanthe --limit 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runLookup(cmd, args[0], limit)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	lookupCmd.Flags().IntVarP(
		&limit, "limit", "l", 20,
		"maximum number of names to show",
	)

	return lookupCmd
}

func runLookup(cmd *cobra.Command, prefix string, limit int) error {
	store, err := iolookup.Open(cfg.LookupDir())
	if err != nil {
		return err
	}
	defer store.Close()

	if limit <= 0 {
		limit = 20
	}
	recs, err := store.ByPrefix(prefix, limit)
	if err != nil {
		return err
	}
	writeLookup(cmd.OutOrStdout(), recs)
	return nil
}

func writeLookup(w io.Writer, recs []usage.LookupUsage) {
	for _, v := range recs {
		name := strings.TrimSpace(v.CanonicalName + " " + v.Authorship)
		if v.Deleted {
			name += " [deleted]"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", v.Key, name, v.Rank, v.Kingdom)
	}
}
