// Command omeqctl resolves medications and computes OMEQ values against the
// catalog from the command line.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
