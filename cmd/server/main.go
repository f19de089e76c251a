// Package main is the entry point for the midi2edda API server
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/james-see/midi2edda/pkg/api"
	"github.com/james-see/midi2edda/pkg/config"
)

func main() {
	port := flag.Int("port", 8080, "Server port")
	configPath := flag.String("config", config.DefaultPath, "Config file path")
	flag.Parse()

	fmt.Printf("Starting midi2edda API server on port %d...\n", *port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", *port)

	if err := api.StartServer(*port, config.Load(*configPath)); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
