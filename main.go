package main

import (
	"os"

	"github.com/insightdelivered/cc-statement-converter/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
