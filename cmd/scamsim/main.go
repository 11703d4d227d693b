package main

import "github.com/agusx1211/scamsim/internal/cli"

func main() {
	cli.Execute()
}
