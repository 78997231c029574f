package main

import "github.com/cloudgroundcontrol/meet-recorder/cmd"

func main() {
	cmd.Execute()
}
