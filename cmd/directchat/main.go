package main

import (
	"os"

	"github.com/leofalp/directchat/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
