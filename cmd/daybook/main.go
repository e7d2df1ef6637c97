// Command daybook is an offline-first task and note manager with
// optional cloud sync.
package main

import (
	"fmt"
	"os"

	"github.com/daybook-app/daybook/internal/ui"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Error("error: ")+err.Error())
		os.Exit(1)
	}
}
