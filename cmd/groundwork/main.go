package main

import (
	"os"

	"github.com/groundwork-io/groundwork/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
