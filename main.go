package main

import "github.com/FluidXR/loggrabber/cmd"

func main() {
	cmd.Execute()
}
