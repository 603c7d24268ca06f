package main

import (
	"os"

	"github.com/mshankarrao/Investment-dao/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
