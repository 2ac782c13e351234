package main

import (
	"os"

	"github.com/joaovieira77/contactForm/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
