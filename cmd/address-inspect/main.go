//go:build cgo

// Command address-inspect shows how an address breaks down: libpostal's
// parsed components next to the pipeline's own normalized matching key.
// It is a separate binary so the main tool stays free of cgo.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	postal "github.com/openvenues/gopostal/parser"

	"github.com/propmerge/internal/normalize"
)

func main() {
	var keyOnly bool
	flag.BoolVar(&keyOnly, "key-only", false, "Print only the matching key, one per input line")
	flag.Parse()

	addresses := flag.Args()
	if len(addresses) == 0 {
		var err error
		addresses, err = readLines(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read stdin: %v\n", err)
			os.Exit(1)
		}
	}
	if len(addresses) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: address-inspect [-key-only] \"23 Willoughby Road, Crows Nest, NSW, 2065\" ...")
		fmt.Fprintln(os.Stderr, "With no arguments, addresses are read from stdin, one per line.")
		os.Exit(2)
	}

	for _, addr := range addresses {
		if keyOnly {
			fmt.Println(normalize.Key(addr))
			continue
		}
		inspect(addr)
	}
}

func readLines(f *os.File) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func inspect(address string) {
	fmt.Printf("Input: %s\n", address)

	key := normalize.Key(address)
	street := normalize.StreetComponent(key)
	fmt.Printf("  Matching key: %s\n", key)
	fmt.Printf("  Street:       %s\n", street)
	fmt.Printf("  Tokens:       %s\n", strings.Join(normalize.TokenizeStreet(street), " "))

	fmt.Println("  libpostal:")
	for _, comp := range postal.ParseAddress(address) {
		fmt.Printf("    %-15s %s\n", comp.Label, comp.Value)
	}
	fmt.Println()
}
