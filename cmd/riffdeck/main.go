package main

import "github.com/tessro/riffdeck/internal/cli"

func main() {
	cli.Execute()
}
