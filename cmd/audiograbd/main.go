// Command audiograbd runs the audiograb HTTP service with the default
// configuration lookup. It is the entrypoint for service managers; use
// `audiograb serve` for flags.
package main

import (
	"context"
	"log"
	"os"

	"audiograb/internal/config"
	"audiograb/internal/serverun"
)

func main() {
	cfg, _, _, err := config.Load(os.Getenv("AUDIOGRAB_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := serverun.Run(context.Background(), cfg, serverun.Options{}); err != nil {
		log.Fatalf("audiograbd: %v", err)
	}
}
