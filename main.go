package main

import "github.com/KaramelBytes/statlab-cli/cmd"

func main() {
	cmd.Execute()
}
