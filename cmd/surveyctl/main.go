// Package main is the surveyctl administration CLI.
package main

import (
	"fmt"
	"os"

	"github.com/survey-studio/backend/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
