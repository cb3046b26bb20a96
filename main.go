package main

import "github.com/parthshah1/synth-publish/cmd"

func main() {
	cmd.Execute()
}
