package main

import "github.com/KaramelBytes/sitelens-cli/cmd"

func main() {
	cmd.Execute()
}
