// cmd/tools/assistant-cli/main.go
package main

import (
	"fmt"
	"os"

	"banking-assistant/cmd/tools/assistant-cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
