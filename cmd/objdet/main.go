package main

import "github.com/MeKo-Tech/objdet/cmd/objdet/cmd"

func main() {
	cmd.Execute()
}
