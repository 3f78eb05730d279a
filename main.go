package main

import "github.com/kozaktomas/facebot/cmd"

func main() {
	cmd.Execute()
}
