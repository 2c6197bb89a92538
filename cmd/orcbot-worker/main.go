// Command orcbot-worker is the reference worker process launched by the
// orcbot supervisor for one agent.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
