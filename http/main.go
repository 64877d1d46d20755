package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/vidlingo/dub-orchestrator/config"
	"github.com/vidlingo/dub-orchestrator/http/controller"
	middlewares "github.com/vidlingo/dub-orchestrator/http/middleware"
	"github.com/vidlingo/dub-orchestrator/http/route"
	"github.com/vidlingo/dub-orchestrator/infra"
	"github.com/vidlingo/dub-orchestrator/repository"
)

func main() {
	if err := godotenv.Load("staging.env"); err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()
	infraClient := infra.InitInfra(cfg)
	repo := repository.InitRepository(infraClient)

	ctrl := controller.NewController(cfg, infraClient, repo)
	mw, err := middlewares.NewMiddlewares(ctrl)
	if err != nil {
		log.Fatalf("Failed to initialize middlewares: %v", err)
	}

	router := route.SetupRouter(ctrl, mw)
	if err := router.Run(":8080"); err != nil {
		log.Fatalf("HTTP server stopped: %v", err)
	}
}
