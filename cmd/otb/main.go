package main

import "github.com/OpenTraceLab/OpenTraceBOM/cmd/otb/cmd"

func main() {
	cmd.Execute()
}
