// Command authctl is the operator tool for the auth service: it hashes
// passwords, creates accounts (for example the first Admin) and mints or
// inspects session tokens.
package main

import (
	"os"
)

func main() {
	if err := NewRootCmd(defaultEnv()).Execute(); err != nil {
		os.Exit(1)
	}
}
