package main

import "github.com/geocoder89/eventparser/cmd/api/cmd"

func main() {
	cmd.Execute()
}
