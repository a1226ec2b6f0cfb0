package main

import (
	"context"
	"log"

	"ledgerlink/internal/domain/notification"
	"ledgerlink/internal/infrastructure/firebase"
	"ledgerlink/internal/infrastructure/ledgerapi"
	"ledgerlink/internal/infrastructure/providers"
	httphandlers "ledgerlink/internal/interfaces/http"
	"ledgerlink/internal/shared/config"
	"ledgerlink/internal/shared/messages"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	API      *ledgerapi.Client
	Catalog  *providers.Catalog
	Notifier *notification.Service
	Registry *httphandlers.Registry

	// Handlers
	LinkHandler *httphandlers.LinkHandler
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	// Backend API client
	api := ledgerapi.NewClient(cfg.Backend.BaseURL, cfg.Backend.Token)

	// Provider catalog and factory
	catalog, err := providers.LoadCatalog(cfg.Providers.CatalogPath)
	if err != nil {
		return nil, err
	}
	factory := providers.NewFactory(catalog, api, providers.Keys{
		TellerApplicationID:  cfg.Providers.TellerApplicationID,
		TellerEnvironment:    cfg.Providers.TellerEnvironment,
		StripePublishableKey: cfg.Providers.StripePublishableKey,
	})

	// Push messaging is optional; the notification feed works without it.
	var messenger notification.Messenger
	if cfg.Firebase.CredentialsFile != "" {
		fb, err := firebase.NewClient(ctx, cfg.Firebase.CredentialsFile)
		if err != nil {
			log.Printf("Warning: Failed to initialize Firebase messaging: %v", err)
		} else {
			messenger = fb
			log.Println("Firebase messaging initialized")
		}
	}

	msgs, err := messages.Load(cfg.Messages.Path)
	if err != nil {
		log.Printf("Warning: Failed to load notification messages: %v", err)
		msgs = nil
	}

	notifier := notification.NewService(messenger, msgs)
	registry := httphandlers.NewRegistry(api, factory, notifier)
	linkHandler := httphandlers.NewLinkHandler(registry, notifier)

	return &Dependencies{
		API:         api,
		Catalog:     catalog,
		Notifier:    notifier,
		Registry:    registry,
		LinkHandler: linkHandler,
	}, nil
}
