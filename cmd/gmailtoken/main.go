// Command gmailtoken runs the OAuth consent flow once and saves the token
// the API uses to send notification email through Gmail.
package main

import (
	"context"
	"log"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/justsurfingit/KarirConnect/internal/auth"
	"github.com/justsurfingit/KarirConnect/internal/config"
)

func main() {
	_ = godotenv.Load()

	var cfg config.EmailConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatal(err)
	}

	oauthCfg, err := auth.GmailConfig(cfg.GmailCredential)
	if err != nil {
		log.Fatalf("Unable to read client secret file: %v", err)
	}
	if err := auth.AuthorizeGmail(context.Background(), oauthCfg, os.Stdin, os.Stdout, cfg.GmailToken); err != nil {
		log.Fatal(err)
	}
	log.Printf("Saved token to %s", cfg.GmailToken)
}
