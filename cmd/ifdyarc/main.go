package main

import (
	"fmt"
	"os"

	ifdyarchive "github.com/indigoparadox/ifdyutil/internal/ifdy-archive"
)

// main is the entrypoint. It delegates argument parsing and command handling
// to the ifdyarchive package.
func main() {
	if err := ifdyarchive.RunCLI(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
