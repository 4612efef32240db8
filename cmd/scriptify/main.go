package main

import "scriptify/cmd/cli"

func main() {
	cli.Execute()
}
