package main

import (
	_ "time/tzdata"

	"github.com/harrisonrobin/wastecal/pkg/cli"
)

func main() {
	cli.Execute()
}
