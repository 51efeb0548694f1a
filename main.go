package main

import "github.com/aoba-labs/mocabot/cmd"

func main() {
	cmd.Execute()
}
