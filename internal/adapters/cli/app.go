// Package cli wires the reconciler's cobra surface: sync, cleanup,
// per-marketplace reauth, and chkconfig, following the teacher's
// internal/adapters/cli package shape (one file per command group, a
// NewRootCommand/Execute pair).
package cli

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/kvell/invsync/internal/adapters/marketplaces/lazada"
	"github.com/kvell/invsync/internal/adapters/marketplaces/opencart"
	"github.com/kvell/invsync/internal/adapters/marketplaces/shopee"
	"github.com/kvell/invsync/internal/adapters/marketplaces/tiktok"
	"github.com/kvell/invsync/internal/adapters/marketplaces/woocommerce"
	"github.com/kvell/invsync/internal/adapters/persistence"
	"github.com/kvell/invsync/internal/application/batch"
	"github.com/kvell/invsync/internal/application/oauth2"
	"github.com/kvell/invsync/internal/domain/inventory"
	"github.com/kvell/invsync/internal/domain/marketplace"
	"github.com/kvell/invsync/internal/infrastructure/config"
	"github.com/kvell/invsync/internal/infrastructure/database"
	"github.com/kvell/invsync/internal/infrastructure/lock"
)

// app bundles everything one command invocation needs. Built fresh per
// invocation rather than held across commands, so each run gets its own
// database connection.
type app struct {
	Config      *config.Config
	DB          *gorm.DB
	Store       inventory.Store
	OAuth2      *oauth2.Service
	Adapters    []marketplace.Adapter
	Coordinator *batch.Coordinator
}

// newApp loads configuration, opens the store, and constructs one adapter
// per enabled marketplace.
func newApp(configPath string) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to database: %v", inventory.ErrStoreCorrupt, err)
	}

	store := persistence.NewGormStore(db)
	oauthSvc := oauth2.NewService(store)
	adapters := buildAdapters(cfg, oauthSvc)
	if len(adapters) == 0 {
		_ = database.Close(db)
		return nil, fmt.Errorf("configuration error: no marketplace is enabled")
	}

	coordinator := batch.NewCoordinator(store, lock.New(cfg.Batch.LockPath), adapters, cfg.Batch.DefaultSystem, cfg.Batch.PropagateListings, nil)

	return &app{
		Config:      cfg,
		DB:          db,
		Store:       store,
		OAuth2:      oauthSvc,
		Adapters:    adapters,
		Coordinator: coordinator,
	}, nil
}

func (a *app) Close() error {
	return database.Close(a.DB)
}

// buildAdapters constructs one adapter per enabled marketplace section. An
// OAuth2 marketplace with no token yet (never reauthorized) still gets
// constructed, with an empty bearer token — every call will fail with
// CommunicationError until its `<marketplace>-reauth` subcommand is run.
func buildAdapters(cfg *config.Config, oauthSvc *oauth2.Service) []marketplace.Adapter {
	var adapters []marketplace.Adapter

	if cfg.Opencart.Enabled {
		adapters = append(adapters, opencart.New(cfg.Opencart))
	}
	if cfg.Shopee.Enabled {
		adapters = append(adapters, shopee.New(cfg.Shopee))
	}
	if cfg.WooCommerce.Enabled {
		adapters = append(adapters, woocommerce.New(cfg.WooCommerce))
	}
	if cfg.Lazada.Enabled {
		adapters = append(adapters, lazada.New(cfg.Lazada, loadAccessToken(oauthSvc, marketplace.SystemLazada)))
	}
	if cfg.TikTok.Enabled {
		adapters = append(adapters, tiktok.New(cfg.TikTok, loadAccessToken(oauthSvc, marketplace.SystemTikTok)))
	}

	return adapters
}

func loadAccessToken(oauthSvc *oauth2.Service, system string) string {
	tok, err := oauthSvc.Get(context.Background(), system)
	if err != nil {
		return ""
	}
	return tok.AccessToken
}
