package main

import "github.com/momeni/schema-forge/cmd/forge/command"

func main() {
	command.Execute()
}
