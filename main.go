package main

import "github.com/nextlevelbuilder/modebot/cmd"

func main() {
	cmd.Execute()
}
