// ABOUTME: Banner and environment status shown in the crystalens help output.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/2389-research/crystalens/config"
)

const crystalASCII = `
        /\
       /  \      crystalens
      /____\
      \    /
       \  /
        \/
`

// printBanner writes the banner and which backend settings come from the
// environment.
func printBanner(w io.Writer, ver string) {
	fmt.Fprint(w, crystalASCII)
	fmt.Fprintf(w, "crystalens %s — console for the agentic analysis backend\n", ver)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	for _, key := range []string{config.EnvHTTP, config.EnvWS, config.EnvLegacyHTTP, config.EnvLegacyWS} {
		fmt.Fprintf(w, "  %-22s %s\n", key, envStatus(key))
	}
	fmt.Fprintln(w)
}

// envStatus returns "[set]" if the named environment variable is non-empty,
// or "[not set]" otherwise.
func envStatus(key string) string {
	if os.Getenv(key) != "" {
		return "[set]"
	}
	return "[not set]"
}
