package main

import "github.com/forge-build/forge/cmd"

func main() {
	cmd.Execute()
}
