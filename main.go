package main

import (
	"github.com/mohaoran/AlphaCouncil/internal/cli"
)

func main() {
	cli.Run()
}
