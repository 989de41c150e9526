package main

import (
	"flag"
	"log"
	"os"

	"github.com/relabs-tech/weed_mapper/internal/app"
)

func main() {
	path := flag.String("map", "weed_map.json", "weed map file written by the mapper")
	flag.Parse()

	if err := app.RunWeedMap(*path, os.Stdout); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
