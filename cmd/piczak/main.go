// Package main provides the piczak CLI.
package main

import (
	"fmt"
	"os"
)

const version = "v0.0.1-dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("piczak %s\n", version)
		return
	}

	fmt.Println("piczak - Environmental Sound Classification for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("")
	fmt.Println("See examples/esc50 for a full train and classify pipeline.")
	fmt.Println("Coming soon: train, classify, export")
}
