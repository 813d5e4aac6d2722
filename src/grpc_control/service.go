package grpc_control

import (
	"context"
	"encoding/json"
	"fmt"

	"market-screener/src/config"
	"market-screener/src/helpers"
	"market-screener/src/interfaces"
	"market-screener/src/logger"
	"market-screener/src/models"
	"market-screener/src/utils"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ControlService implements ScreenerControlServer.
type ControlService struct {
	Config     *config.Config
	ConfigPath string
	Screener   interfaces.IScreener
	Publisher  interfaces.IResultPublisher
	Calendar   *utils.TradingCalendar
	Logger     *logger.Logger
}

// runScreenArgs mirrors the RunScreen request struct.
type runScreenArgs struct {
	Symbols []string              `json:"symbols"`
	Start   string                `json:"start"`
	End     string                `json:"end"`
	Filters models.MScreenFilters `json:"filters"`
}

// NewControlService creates a new instance of ControlService
func NewControlService(
	cfg *config.Config,
	cfgPath string,
	screener interfaces.IScreener,
	publisher interfaces.IResultPublisher,
	cal *utils.TradingCalendar,
	log *logger.Logger,
) *ControlService {
	return &ControlService{
		Config:     cfg,
		ConfigPath: cfgPath,
		Screener:   screener,
		Publisher:  publisher,
		Calendar:   cal,
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

// RunScreen runs one screen. The request carries symbols, start, end and
// optional filters; the response is the JSON shape of the screen result.
func (s *ControlService) RunScreen(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var args runScreenArgs
	if err := fromStruct(req, &args); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	if args.Start == "" || args.End == "" {
		return nil, status.Error(codes.InvalidArgument, "start and end are required")
	}

	loc := s.Calendar.Location()
	start, err := utils.ParseMarketTime(args.Start, loc)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	end, err := utils.ParseMarketTime(args.End, loc)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	symbols := args.Symbols
	if len(symbols) == 0 {
		symbols = s.Config.Universe()
	}

	result, err := s.Screener.RunScreen(ctx, models.MScreenRequest{
		Symbols: symbols,
		Window:  models.MTimeWindow{Start: start, End: end},
		Filters: args.Filters,
	})
	if err != nil {
		if helpers.IsInvalidInput(err) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		s.Logger.Error("gRPC: RunScreen failed: %v", err)
		return nil, status.Error(codes.Internal, err.Error())
	}

	if s.Publisher != nil {
		s.Publisher.Publish(result)
	}

	out, err := toStruct(result)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	s.Logger.Info("gRPC: RunScreen produced %d records", len(result.Records))
	return out, nil
}

// -----------------------------------------------------------------------------

// UpdateSymbols replaces the default universe and persists the config.
func (s *ControlService) UpdateSymbols(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var args struct {
		Symbols []string `json:"symbols"`
	}
	if err := fromStruct(req, &args); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}

	newSymbols := utils.NormalizeSymbols(args.Symbols)
	if len(newSymbols) == 0 {
		return nil, status.Error(codes.InvalidArgument, "symbols list cannot be empty")
	}

	if err := s.Config.SetUniverse(newSymbols, s.ConfigPath); err != nil {
		s.Logger.Error("gRPC: Failed to persist symbols: %v", err)
		return nil, status.Errorf(codes.Internal, "persist config: %v", err)
	}

	s.Logger.Info("gRPC: UpdateSymbols success. Count: %d", len(newSymbols))
	return structpb.NewStruct(map[string]any{
		"success":      true,
		"message":      fmt.Sprintf("Successfully updated universe with %d symbols", len(newSymbols)),
		"symbol_count": len(newSymbols),
	})
}

// -----------------------------------------------------------------------------

func (s *ControlService) Health(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"status":   "ok",
		"provider": s.Config.Provider.Type,
		"market":   s.Config.Screener.Market,
		"symbols":  len(s.Config.Universe()),
	})
}

// -----------------------------------------------------------------------------

func fromStruct(in *structpb.Struct, dst any) error {
	raw, err := json.Marshal(in.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// -----------------------------------------------------------------------------

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
