package main

import "tessera/cmd/tessera-cli/cmd"

func main() {
	cmd.Execute()
}
