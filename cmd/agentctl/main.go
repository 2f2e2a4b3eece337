// Command agentctl talks to the insurance agents without the HTTP server.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
