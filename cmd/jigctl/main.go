package main

import (
	"github.com/robotalks/jig.go/pkg/cli/sh"
	"github.com/robotalks/jig.go/pkg/jig/env"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
