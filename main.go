package main

import "github.com/quantpair/statarb/cmd"

func main() {
	cmd.Execute()
}
