package main

import "github.com/strandmem/strand/internal/cli"

func main() {
	cli.Execute()
}
