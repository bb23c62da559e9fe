package main

import "github.com/Fepozopo/geotag/cmd"

func main() {
	cmd.Execute()
}
