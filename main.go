package main

import (
	"ScoreFM/cmd"
)

func main() {
	cmd.Execute()
}
