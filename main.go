package main

import "botbridge/cmd"

func main() {
	cmd.Execute()
}
