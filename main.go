package main

import "scan-analysis/cmd"

func main() {
	cmd.Execute()
}
