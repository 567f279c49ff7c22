package main

import (
	"github.com/cedric-sd/Camus/cmd/camus/cmd"
)

func main() {
	cmd.Execute()
}
