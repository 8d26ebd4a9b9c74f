package main

import (
	"os"

	"github.com/roach88/puresh/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
