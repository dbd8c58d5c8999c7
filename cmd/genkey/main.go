package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"

	"github.com/eldtechnologies/ledgerchat/internal/crypto"
)

func main() {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate key: %v\n", err)
		os.Exit(1)
	}

	id, err := crypto.Identity(pub)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode identity: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Identity (base58): %s\n", id)
	fmt.Printf("Seed (base64):     %s\n", crypto.EncodeSeed(priv))
}
