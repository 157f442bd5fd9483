// Package main provides the entry point pointer for cgrasim.
// cgrasim is an atomic-mode CGRA-32 core simulator built on Akita components.
//
// For the full CLI, use: go run ./cmd/cgrasim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("cgrasim - CGRA-32 Atomic Core Simulator")
	fmt.Println("")
	fmt.Println("Usage: cgrasim run [options] <program>")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/cgrasim run --help' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/cgrasim' instead.")
	}
}
