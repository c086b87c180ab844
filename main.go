package main

import "github.com/papapumpkin/gantry/cmd"

func main() {
	cmd.Execute()
}
