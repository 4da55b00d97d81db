package main

import "dustsweep/internal/cli"

func main() {
	cli.Execute()
}
