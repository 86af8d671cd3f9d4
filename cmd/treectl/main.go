package main

import "github.com/sulu/sulu-sub013/cmd/treectl/cmd"

func main() {
	cmd.Execute()
}
