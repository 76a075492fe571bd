package main

import "github.com/firmanjml/cs3-ext-flixhq/cmd"

func main() {
	cmd.Execute()
}
