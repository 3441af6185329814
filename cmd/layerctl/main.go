package main

import (
	"os"

	"orchd/internal/layerctl"
)

func main() {
	os.Exit(layerctl.Main())
}
