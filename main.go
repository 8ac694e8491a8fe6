package main

import "github.com/tillworks/till/cmd"

func main() {
	cmd.Execute()
}
