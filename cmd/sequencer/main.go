package main

import "github.com/nfrund/sequencer/cmd/sequencer/cmd"

func main() {
	cmd.Execute()
}
