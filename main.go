package main

import (
	"github.com/advertile/campwatch/cmd"
)

func main() {
	cmd.Execute()
}
