// Command scrawl is the client for the shared story feed. It submits short
// text posts, queues them durably while offline, and syncs the queue when
// connectivity returns.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
