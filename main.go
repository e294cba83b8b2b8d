package main

import "github.com/wrenfield/ctxcore/cmd"

func main() {
	cmd.Execute()
}
