package main

import (
	"flag"
	"log"

	"github.com/iamvkosarev/study-energy-bot/config"
	"github.com/iamvkosarev/study-energy-bot/internal/app"
	"github.com/joho/godotenv"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	debug := flag.Bool("debug", false, "verbose logging")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded:", err)
	}

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.Run(cfg, *debug); err != nil {
		log.Fatalf("app stopped with error: %v", err)
	}
}
