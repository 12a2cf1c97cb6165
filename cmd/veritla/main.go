package main

import (
	"github.com/vhavlena/veritla/pkg/cmd"
)

func main() {
	cmd.Execute()
}
