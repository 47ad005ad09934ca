package main

import "github.com/moyu-x/file-sorter/cmd"

func main() {
	cmd.Execute()
}
