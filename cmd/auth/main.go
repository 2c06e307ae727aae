package main

import (
	"fmt"
	"log"

	"github.com/common-nighthawk/go-figure"

	"github.com/aussiebroadwan/tollgate/internal/auth/app"
)

func main() {
	displayBanner("tollgate")

	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

func displayBanner(name string) {
	banner := figure.NewFigure(name, "cybermedium", true)
	banner.Print()
	fmt.Println(app.BuildVersion)
	fmt.Println()
}
