package main

import (
	"os"

	"github.com/soundprediction/go-reranker/cmd/rerankd"
)

func main() {
	if err := rerankd.Execute(); err != nil {
		os.Exit(1)
	}
}
