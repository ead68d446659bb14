package main

import "github.com/hostcomply/hostcomply/internal/cli"

func main() {
	cli.Execute()
}
