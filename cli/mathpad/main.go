package main

import (
	"os"

	mathpadcmder "github.com/papercomputeco/mathpad/cmd/mathpad"
)

func main() {
	cmd := mathpadcmder.NewMathpadCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
