package main

import "journal/internal/cmd"

func main() {
	cmd.Run()
}
