package main

import "github.com/mkarres/tablecast/internal/cli"

func main() {
	cli.Execute()
}
