package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ajitpratap0/gtfcol/pkg/errors"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

// formatError renders err with its details, e.g.
// "Error: numeric_parse: invalid start coordinate: ... (input=genes.gtf line=12)"
func formatError(err error) string {
	e, ok := err.(*errors.Error)
	if !ok || len(e.Details) == 0 {
		return "Error: " + err.Error()
	}

	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, e.Details[k])
	}
	return fmt.Sprintf("Error: %s (%s)", e.Error(), strings.Join(parts, " "))
}
