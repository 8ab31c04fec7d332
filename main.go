package main

import (
	"listenboard/cmd"
)

func main() {
	cmd.Execute()
}
