// Package image writes an assembled byte image to its final destinations:
// the primary flat binary, an optional Intel HEX secondary file, and an
// optional labels-to-addresses listing (spec §4.8, §6 "Output").
package image

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// WriteBinary writes data verbatim to path: a flat binary, no header, no
// trailing metadata (spec §6).
func WriteBinary(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil { // #nosec G306 -- assembler output is not sensitive
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}

// WriteLabels writes a sorted two-column labels-to-addresses listing,
// one label per line as `name 0xXXXXXXXX`, grounded on the teacher's
// sort-by-name xref report style.
func WriteLabels(path string, labels map[string]int64) error {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "%-32s 0x%08X\n", name, uint32(labels[name]))
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil { // #nosec G306
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}
