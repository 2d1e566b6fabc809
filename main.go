package main

import "github.com/salesline/salesline/cmd"

func main() {
	cmd.Execute()
}
