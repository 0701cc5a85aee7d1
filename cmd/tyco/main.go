package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/tyco-lang/tyco"
)

func main() {
	log.SetFlags(0)

	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <input.tyco>\n", filepath.Base(os.Args[0]))
		os.Exit(1)
	}
	inputFile := os.Args[1]

	log.Printf("Parsing '%s'...\n", inputFile)
	result, err := tyco.ParseFile(inputFile)
	if err != nil {
		log.Fatalf("Failed: Parse - %v\n", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Failed: JSON encoding - %v\n", err)
	}
	fmt.Println(string(out))
}
