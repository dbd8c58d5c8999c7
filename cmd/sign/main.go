package main

import (
	"crypto/ed25519"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/eldtechnologies/ledgerchat/internal/crypto"
)

func main() {
	seedB64 := flag.String("key", "", "Base64-encoded Ed25519 seed or private key")
	bodyFile := flag.String("body", "", "File containing request body (or use stdin)")
	flag.Parse()

	if *seedB64 == "" {
		fmt.Fprintln(os.Stderr, "Usage: sign -key <seed-base64> [-body <file>]")
		fmt.Fprintln(os.Stderr, "  Reads body from stdin if -body not specified")
		os.Exit(1)
	}

	priv, err := crypto.ParsePrivateKey(*seedB64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid private key: %v\n", err)
		os.Exit(1)
	}
	signer, err := crypto.Identity(priv.Public().(ed25519.PublicKey))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid private key: %v\n", err)
		os.Exit(1)
	}

	var body []byte
	if *bodyFile != "" {
		body, err = os.ReadFile(*bodyFile)
	} else {
		body, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read body: %v\n", err)
		os.Exit(1)
	}

	nonce := crypto.NewNonce()
	timestamp := time.Now().UnixMilli()

	fmt.Printf("%s: %s\n", crypto.HeaderSigner, signer)
	fmt.Printf("%s: %s\n", crypto.HeaderNonce, nonce)
	fmt.Printf("%s: %d\n", crypto.HeaderTimestamp, timestamp)
	fmt.Printf("%s: %s\n", crypto.HeaderSignature, crypto.Sign(priv, body, nonce, timestamp))
}
