package main

import "github.com/levelshelf/levelshelf/internal/adapters/driving/cli"

func main() {
	cli.Execute()
}
