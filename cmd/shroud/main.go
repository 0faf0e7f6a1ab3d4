package main

import "github.com/whit3rabbit/shroud/cmd/shroud/cmd"

func main() {
	cmd.Execute()
}
