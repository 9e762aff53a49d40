// Command reedboard tracks moves on a reed switch chessboard.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/reedboard/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
