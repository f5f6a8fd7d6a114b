// Command gensecret prints a random hex string suitable for JWT_SECRET_KEY.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
)

func main() {
	n := flag.Int("bytes", 32, "number of random bytes")
	flag.Parse()

	if *n < 16 {
		fmt.Fprintln(os.Stderr, "gensecret: -bytes must be at least 16")
		os.Exit(2)
	}

	buf := make([]byte, *n)
	if _, err := rand.Read(buf); err != nil {
		fmt.Fprintf(os.Stderr, "gensecret: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hex.EncodeToString(buf))
}
