package main

import "crunch/cmd"

func main() {
	cmd.Execute()
}
