package main

import (
	"fmt"
	"io"
)

// printCount prints the closing line of a command, e.g.
// "Operation count: 4".
func printCount(w io.Writer, label string, n int) {
	fmt.Fprintf(w, "%s: %d\n", label, n)
}
