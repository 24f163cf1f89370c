package main

import (
	"fmt"
	"os"
)

var Version = "dev"

func main() {
	root := newRootCmd()
	root.Version = Version

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
