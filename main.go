package main

import "character-sync/cmd"

func main() {
	cmd.Execute()
}
