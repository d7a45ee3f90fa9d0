// Package main is entrypoint for the application
package main

import "studycall/cmd"

func main() {
	cmd.Run()
}
