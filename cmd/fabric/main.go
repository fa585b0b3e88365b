package main

import "github.com/fabricworks/fabric/cmd/fabric/cli"

func main() {
	cli.Execute()
}
