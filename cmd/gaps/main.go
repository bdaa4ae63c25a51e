package main

import "github.com/theakshaypant/gaps/cmd/gaps/cmd"

func main() {
	cmd.Execute()
}
