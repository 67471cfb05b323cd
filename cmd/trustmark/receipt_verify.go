package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"trustmark/pkg/receipt"
)

// receiptEnvelope mirrors the receipt block served by the public
// verification endpoint.
type receiptEnvelope struct {
	JSON         json.RawMessage `json:"json"`
	ReceiptHash  string          `json:"receiptHash"`
	Signature    string          `json:"signature"`
	SignerPubKey string          `json:"signerPubKey"`
}

func runReceiptVerify(args []string) int {
	fs := flag.NewFlagSet("receipt verify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var inPath string
	fs.StringVar(&inPath, "in", "", "receipt JSON file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if inPath == "" {
		fmt.Fprintln(os.Stderr, "receipt verify requires --in <receipt.json>")
		return 1
	}

	payload, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read receipt: %v\n", err)
		return 1
	}
	var env receiptEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		fmt.Fprintf(os.Stderr, "decode receipt: %v\n", err)
		return 1
	}

	result, err := receipt.Verify(receipt.Receipt{
		JSON:         env.JSON,
		ReceiptHash:  env.ReceiptHash,
		Signature:    env.Signature,
		SignerPubKey: env.SignerPubKey,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify receipt: %v\n", err)
		return 1
	}

	if result.HashValid != nil {
		fmt.Printf("receipt hash: %s\n", verdict(*result.HashValid))
	}
	fmt.Printf("signature: %s\n", verdict(result.SignatureValid))

	ok := result.SignatureValid && (result.HashValid == nil || *result.HashValid)
	if ok {
		fmt.Println("receipt: VALID")
		return 0
	}
	fmt.Println("receipt: INVALID")
	return 1
}

func verdict(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAILED"
}
