package main

import "flipmail/cmd/flipmail/cmd"

func main() {
	cmd.Execute()
}
