package main

import (
	"github.com/starwort/domgen-tools/cmd"
)

func main() {
	cmd.Execute()
}
