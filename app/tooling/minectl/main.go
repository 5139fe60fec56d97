package main

import "github.com/ardanlabs/blockminer/app/tooling/minectl/cmd"

func main() {
	cmd.Execute()
}
