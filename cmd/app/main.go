package main

import (
	"github.com/planpoker/core/internal/app"
	"github.com/planpoker/core/internal/config"
)

func main() {
	app.Go(config.Load())
}
