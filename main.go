package main

import "github.com/hivetrader/sessionbot/cmd"

func main() {
	cmd.Execute()
}
