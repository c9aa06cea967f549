package main

import "github.com/theakshaypant/calmerge/cmd/calmerge/cmd"

func main() {
	cmd.Execute()
}
