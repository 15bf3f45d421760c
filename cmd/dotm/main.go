package main

import (
	"errors"
	"fmt"
	"os"
)

// needsAttentionError signals exit code 2: the command ran but found
// conflicts, drift or validation errors the user must look at
type needsAttentionError struct {
	msg string
}

func (e *needsAttentionError) Error() string {
	return e.msg
}

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		var attention *needsAttentionError
		if errors.As(err, &attention) {
			return 2
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
