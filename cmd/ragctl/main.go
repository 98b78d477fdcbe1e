package main

import (
	"os"

	"github.com/kirillkom/scholar-rag/cmd/ragctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
