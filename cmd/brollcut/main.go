package main

import "github.com/forPelevin/brollcut/internal/cli"

func main() {
	cli.Main()
}
