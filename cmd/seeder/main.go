package main

import (
	"context"
	"log"

	_ "github.com/joho/godotenv/autoload"

	"github.com/minhdn/price-alert-bot/internal/config"
	"github.com/minhdn/price-alert-bot/internal/domain"
	"github.com/minhdn/price-alert-bot/internal/infrastructure/gist"
)

// Сидер заполняет Gist-зеркало стартовым набором записей, чтобы был
// виден формат файла. Запускается вручную, один раз, локально.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	if cfg.Env != "local" {
		log.Fatal("Seeder allowed only in local environment")
	}

	mirror := gist.NewClient(cfg.GithubToken, cfg.GistID, cfg.HTTPTimeout)
	if !mirror.Enabled() {
		log.Fatal("GITHUB_TOKEN and GIST_ID must be set")
	}

	seed := []domain.MirrorToken{
		{ID: "suins-token", Threshold: 0.19, Type: "above", Name: "Suins Token"},
		{ID: "suins-token", Threshold: 0.16, Type: "below", Name: "Suins Token"},
		{ID: "bitcoin", Threshold: 93000, Type: "above", Name: "Bitcoin"},
	}

	if err := mirror.ReplaceTokens(context.Background(), seed); err != nil {
		log.Fatalf("Failed to seed mirror: %v", err)
	}

	log.Printf("Mirror gist initialized with %d entries", len(seed))
}
