package main

import (
	"os"

	"github.com/rawlogin/adminctl/cmd/adminctl/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
