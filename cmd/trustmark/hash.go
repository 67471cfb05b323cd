package main

import (
	"context"
	"fmt"
	"os"

	"trustmark/internal/infra/crypto"
)

func runHash(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "hash requires <file>")
		return 1
	}

	sum, err := crypto.FileHasher{}.SHA256(context.Background(), args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash file: %v\n", err)
		return 1
	}
	fmt.Printf("%s  %s\n", sum, args[0])
	return 0
}
