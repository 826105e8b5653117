package chord

import (
	"fmt"
	"io"
)

// WriteReport prints one line per lookup, in the order given:
//
//	Lookup <key>: <id0> -> <id1> -> ... -> <idN>
func WriteReport(w io.Writer, results []LookupMessage) error {
	for _, r := range results {
		if _, err := fmt.Fprintf(w, "Lookup %d: %s\n", r.Key, r.PathString()); err != nil {
			return err
		}
	}
	return nil
}
