package main

import "github.com/marcos/novachat/internal/commands"

func main() {
	commands.Execute()
}
