package main

import "github.com/guimove/capsim/cmd"

func main() {
	cmd.Execute()
}
