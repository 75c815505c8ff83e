package main

import (
	"github.com/daedaleanai/vbt/cmd"
)

func main() {
	cmd.Execute()
}
