package main

import "docksight/cmd/docksight/commands"

func main() {
	commands.Execute()
}
