package main

import "github.com/pilab-dev/shadow-session/cmd/sessiond/cmd"

func main() {
	cmd.Execute()
}
