package main

import "homereader/cmd"

func main() {
	cmd.Execute()
}
