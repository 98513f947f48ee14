// Command terrabench evaluates language models on infrastructure
// provisioning tasks: it prompts a model for Terraform code, executes the
// staged workflow against a Xen Orchestra pool, feeds errors back, and
// records every attempt as a dataset entry.
package main

import (
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
