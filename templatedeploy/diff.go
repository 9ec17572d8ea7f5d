// Sshorch
// Copyright (C) 2019-2026+ The sshorch contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package templatedeploy

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// UnifiedDiff computes a human-readable, unified-style diff between the
// live remote file (old) and the freshly rendered content (new): a
// "--- old" / "+++ new" header, then one "- "/"+ " line per differing
// input line. It's line-granular, not character-granular, so it reads the
// way an operator expects a config diff to read.
func UnifiedDiff(old, new string) string {
	dmp := diffmatchpatch.New()
	charsOld, charsNew, lineArray := dmp.DiffLinesToChars(old, new)
	diffs := dmp.DiffMain(charsOld, charsNew, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var b strings.Builder
	b.WriteString("--- old\n")
	b.WriteString("+++ new\n")
	for _, d := range diffs {
		for _, line := range splitKeepEmpty(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffDelete:
				fmt.Fprintf(&b, "- %s\n", line)
			case diffmatchpatch.DiffInsert:
				fmt.Fprintf(&b, "+ %s\n", line)
			case diffmatchpatch.DiffEqual:
				// unchanged lines are omitted from the unified-style output
			}
		}
	}
	return b.String()
}

// splitKeepEmpty splits on newlines the way DiffLinesToChars joined them,
// dropping the trailing empty element a terminal "\n" would otherwise add.
func splitKeepEmpty(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
