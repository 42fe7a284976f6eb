package main

import "caveatlab/delegraph/cmd"

func main() {
	cmd.Execute()
}
