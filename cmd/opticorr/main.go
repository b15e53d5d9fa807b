// Command opticorr runs iterative global optics corrections and manages the
// response matrices and run archive they depend on.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
