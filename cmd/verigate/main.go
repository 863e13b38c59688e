package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/harrison/verigate/internal/cmd"
)

func main() {
	rootCmd := cmd.NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		// The FAIL banner is already printed for gate failures; only
		// unexpected errors need reporting here
		if !errors.Is(err, cmd.ErrGateFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
