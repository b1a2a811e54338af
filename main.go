package main

import "github.com/KaramelBytes/shopseg-cli/cmd"

func main() {
	cmd.Execute()
}
