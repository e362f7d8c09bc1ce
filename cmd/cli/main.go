// Astroreport - Imaging Session Correlation Tool
//
// Astroreport correlates the files an astrophotography session leaves
// behind (image headers, autoguider logs, acquisition logs) onto one UTC
// timeline and reports guiding quality per exposure.
package main

import (
	"os"

	"github.com/ComicStans-dev/astro-session-reporter/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
