package datasource

import (
	"fmt"

	"market-screener/src/data_source/archive"
	"market-screener/src/data_source/yahoo"
	"market-screener/src/interfaces"
	"market-screener/src/logger"
	"market-screener/src/models"
	"market-screener/src/network"
	"market-screener/src/storage"
	"market-screener/src/utils"
)

// retentionCleaner is implemented by the SQL stores.
type retentionCleaner interface {
	CleanupOldData(retentionDays int) error
}

// Provider is the configured bar provider plus the store it owns, if any.
type Provider struct {
	interfaces.IMarketDataProvider
	Store interfaces.IBarStore
}

// -----------------------------------------------------------------------------

// Close releases the underlying store.
func (p *Provider) Close() error {
	if p.Store == nil {
		return nil
	}
	return p.Store.Close()
}

// -----------------------------------------------------------------------------

// NewBarStore builds the store named by storage.db_type without opening it.
func NewBarStore(cfg *models.MConfig, cal *utils.TradingCalendar, log *logger.Logger) (interfaces.IBarStore, error) {
	switch cfg.Storage.DBType {
	case "postgres":
		return storage.NewPostgresBarStore(cfg, cal, log), nil
	case "sqlite", "":
		return storage.NewSQLiteBarStore(cfg, cal, log), nil
	}
	return nil, fmt.Errorf("unknown db_type %q", cfg.Storage.DBType)
}

// -----------------------------------------------------------------------------

// NewProvider wires the provider selected by provider.type. A yahoo provider
// with provider.cache set reads through the configured bar store.
func NewProvider(cfg *models.MConfig, cal *utils.TradingCalendar, log *logger.Logger) (*Provider, error) {
	switch cfg.Provider.Type {
	case "yahoo", "":
		netMgr := network.NewAsyncNetworkManager(cfg, logger.NewLogger(cfg, "network"))
		remote := yahoo.NewYahooFinanceSource(cfg, netMgr, cal, logger.NewLogger(cfg, "yahoo"))
		if !cfg.Provider.Cache {
			return &Provider{IMarketDataProvider: remote}, nil
		}

		store, err := openStore(cfg, cal)
		if err != nil {
			return nil, err
		}
		chain := NewMultiSourceManager([]interfaces.IMarketDataProvider{store, remote}, store, cal, log)
		return &Provider{IMarketDataProvider: chain, Store: store}, nil

	case "sqlite", "postgres":
		local := *cfg
		local.Storage.DBType = cfg.Provider.Type
		store, err := openStore(&local, cal)
		if err != nil {
			return nil, err
		}
		return &Provider{IMarketDataProvider: store, Store: store}, nil

	case "parquet":
		src := archive.NewParquetSource(cfg.Provider.ParquetDir, cal, logger.NewLogger(cfg, "parquet"))
		if err := src.Initialize(); err != nil {
			return nil, err
		}
		return &Provider{IMarketDataProvider: src, Store: src}, nil
	}

	return nil, fmt.Errorf("unknown provider type %q", cfg.Provider.Type)
}

// -----------------------------------------------------------------------------

func openStore(cfg *models.MConfig, cal *utils.TradingCalendar) (interfaces.IBarStore, error) {
	store, err := NewBarStore(cfg, cal, logger.NewLogger(cfg, "storage"))
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(); err != nil {
		return nil, err
	}
	if days := cfg.Storage.RetentionDays; days > 0 {
		if c, ok := store.(retentionCleaner); ok {
			if err := c.CleanupOldData(days); err != nil {
				return nil, err
			}
		}
	}
	return store, nil
}
