package icewire

import (
	"golang.org/x/text/encoding/charmap"
)

// SalvageUTF8 converts an opaque wire byte string into valid UTF-8 at the
// display boundary, per spec.md §4.C1: "No UTF-8 is assumed; strings are
// opaque byte sequences salvaged to valid UTF-8 at the display boundary."
// The service's wire strings were produced by a Windows-1252 locale client,
// so that is the charmap used for the salvage decode.
func SalvageUTF8(b []byte) string {
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b) // best effort: fall back to the raw bytes as-is
	}
	return string(out)
}
