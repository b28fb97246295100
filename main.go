package main

import "startion/cmd"

func main() {
	cmd.Execute()
}
