package main

import "github.com/bryanchriswhite/FocusBar/cmd/focusbar/commands"

func main() {
	commands.Execute()
}
