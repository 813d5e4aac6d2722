package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"market-screener/src/config"
	datasource "market-screener/src/data_source"
	"market-screener/src/grpc_control"
	"market-screener/src/interfaces"
	"market-screener/src/logger"
	"market-screener/src/models"
	"market-screener/src/screener"
	"market-screener/src/server"
	"market-screener/src/storage"
	"market-screener/src/telemetry"
	"market-screener/src/universe"
	"market-screener/src/utils"

	"google.golang.org/grpc"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	symbolsFlag := flag.String("symbols", "", "comma separated symbols (defaults to config symbols)")
	universeFlag := flag.String("universe", "", "csv/xlsx file with a Ticker column (overrides config universe_file)")
	startFlag := flag.String("start", "", "window start, exchange-local (YYYY-MM-DD[THH:MM])")
	endFlag := flag.String("end", "", "window end, exchange-local (YYYY-MM-DD[THH:MM])")
	minPrice := flag.Float64("min-price-change", 0, "keep records with |price change %| above this value")
	minSpike := flag.Float64("min-volume-spike", 0, "keep records with |volume spike %| above this value")
	serve := flag.Bool("serve", false, "run the HTTP/WebSocket and gRPC servers")
	flag.Parse()

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.MConfig, cfg.Name)
	defer appLogger.Sync()

	if *universeFlag != "" {
		cfg.UniverseFile = *universeFlag
	}
	if cfg.UniverseFile != "" {
		symbols, err := universe.LoadTickers(cfg.UniverseFile)
		if err != nil {
			appLogger.Critical("Failed to load universe: %v", err)
			os.Exit(1)
		}
		appLogger.Info("Loaded %d symbols from %s", len(symbols), cfg.UniverseFile)
		cfg.Symbols = symbols
	}

	cal := utils.GetCalendar(cfg.Screener.Market)

	provider, err := datasource.NewProvider(cfg.MConfig, cal, logger.NewLogger(cfg.MConfig, "provider"))
	if err != nil {
		appLogger.Critical("Failed to init provider: %v", err)
		os.Exit(1)
	}
	defer provider.Close()

	// Expand table-backed universes (schema.table.field) through Postgres.
	if pg, ok := provider.Store.(*storage.PostgresBarStore); ok {
		expanded, err := pg.ExpandSymbols(cfg.Symbols)
		if err != nil {
			appLogger.Warning("Symbol expansion failed: %v", err)
		} else {
			cfg.Symbols = expanded
		}
	}

	engine := screener.NewScreener(cfg.MConfig, provider, cal, logger.NewLogger(cfg.MConfig, "screener"))

	if *serve {
		if err := runServers(cfg, *configPath, engine, cal, appLogger); err != nil {
			appLogger.Critical("Server failed: %v", err)
			os.Exit(1)
		}
		return
	}

	// One-shot screen
	req, err := buildRequest(cfg, cal, *symbolsFlag, *startFlag, *endFlag, *minPrice, *minSpike)
	if err != nil {
		appLogger.Error("Invalid arguments: %v", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	result, err := engine.RunScreen(ctx, req)
	if err != nil {
		appLogger.Error("Screen failed: %v", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		appLogger.Error("Failed to encode result: %v", err)
		os.Exit(1)
	}
}

// -----------------------------------------------------------------------------

func buildRequest(
	cfg *config.Config,
	cal *utils.TradingCalendar,
	symbols, start, end string,
	minPrice, minSpike float64,
) (models.MScreenRequest, error) {
	if start == "" || end == "" {
		return models.MScreenRequest{}, fmt.Errorf("-start and -end are required")
	}

	startAt, err := utils.ParseMarketTime(start, cal.Location())
	if err != nil {
		return models.MScreenRequest{}, err
	}
	endAt, err := utils.ParseMarketTime(end, cal.Location())
	if err != nil {
		return models.MScreenRequest{}, err
	}

	universe := cfg.Symbols
	if symbols != "" {
		universe = strings.Split(symbols, ",")
	}

	req := models.MScreenRequest{
		Symbols: utils.NormalizeSymbols(universe),
		Window:  models.MTimeWindow{Start: startAt, End: endAt},
	}
	if minPrice > 0 {
		req.Filters.MinAbsPriceChangePct = &minPrice
	}
	if minSpike > 0 {
		req.Filters.MinVolumeSpikePct = &minSpike
	}
	return req, nil
}

// -----------------------------------------------------------------------------

func runServers(
	cfg *config.Config,
	cfgPath string,
	engine *screener.Screener,
	cal *utils.TradingCalendar,
	appLogger *logger.Logger,
) error {
	var runner interfaces.IScreener = engine
	var metrics *telemetry.Metrics
	if cfg.Metrics {
		m, err := telemetry.NewMetrics(cfg.Name)
		if err != nil {
			return err
		}
		metrics = m
		runner = telemetry.Instrument(engine, m)
	}

	srv := server.NewScreenerServer(cfg, runner, cal, logger.NewLogger(cfg.MConfig, "server"))
	if metrics != nil {
		srv.MountMetrics(metrics.Handler())
	}

	grpcAddr := fmt.Sprintf("%s:%d", cfg.GrpcHost, cfg.GrpcPort)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", grpcAddr, err)
	}
	grpcServer := grpc.NewServer()
	control := grpc_control.NewControlService(cfg, cfgPath, runner, srv, cal, logger.NewLogger(cfg.MConfig, "grpc"))
	grpc_control.RegisterScreenerControlServer(grpcServer, control)

	errs := make(chan error, 2)
	go func() {
		appLogger.Info("gRPC control listening on %s", grpcAddr)
		errs <- grpcServer.Serve(lis)
	}()
	go func() {
		errs <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err = <-errs:
	case <-quit:
		appLogger.Info("Shutting down...")
	}

	grpcServer.GracefulStop()
	if stopErr := srv.Stop(); stopErr != nil {
		appLogger.Warning("HTTP server stop: %v", stopErr)
	}
	if metrics != nil {
		_ = metrics.Shutdown(context.Background())
	}
	return err
}
