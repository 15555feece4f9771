package main

import "dase/cmd/dase/cmd"

func main() {
	cmd.Execute()
}
