package main

import "artifact-cleanup/internal/cli"

func main() {
	cli.Execute()
}
