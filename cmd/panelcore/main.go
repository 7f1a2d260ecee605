// Command panelcore serves the session, authorization and audit API and ships
// operator tooling around it.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
