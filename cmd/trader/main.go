package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rxtech-lab/argo-exec/internal/engine"
	"github.com/rxtech-lab/argo-exec/internal/logger"
	"github.com/rxtech-lab/argo-exec/internal/strategy"
	"github.com/rxtech-lab/argo-exec/internal/types"
	"github.com/rxtech-lab/argo-exec/internal/venue/binance"
	"github.com/urfave/cli/v3"
)

// tradeAction is the core logic executed by the CLI command. It loads the
// engine configuration, wires the Binance venue and the default strategy,
// and runs the engine until interrupted.
func tradeAction(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	symbolsFlag := cmd.String("symbols")
	intervalFlag := cmd.String("interval")
	notionalFlag := cmd.Float("notional")
	testnetFlag := cmd.Bool("testnet")

	config := &engine.Config{}

	if configPath != "" {
		configBytes, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}

		config, err = engine.ParseConfig(string(configBytes))
		if err != nil {
			return err
		}
	}

	// Flags override the file.
	if symbolsFlag != "" {
		symbols := strings.Split(symbolsFlag, ",")
		for i := range symbols {
			symbols[i] = strings.TrimSpace(symbols[i])
		}

		config.Symbols = symbols
	}

	if intervalFlag != "" {
		config.Interval = intervalFlag
	}

	if notionalFlag > 0 {
		config.OrderNotional = notionalFlag
	}

	zapLogger, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	venueAdapter, err := binance.NewAdapter(binance.Config{
		ApiKey:     os.Getenv("BINANCE_API_KEY"),
		SecretKey:  os.Getenv("BINANCE_SECRET_KEY"),
		UseTestnet: testnetFlag,
	}, zapLogger)
	if err != nil {
		return fmt.Errorf("failed to create venue: %w", err)
	}

	eng := engine.NewEngineWithLogger(zapLogger)
	if err := eng.Initialize(*config); err != nil {
		return err
	}

	if err := eng.SetVenue(venueAdapter); err != nil {
		return err
	}

	if err := eng.SetStrategy(strategy.NewSMACrossover(0, 0)); err != nil {
		return err
	}

	callbacks := engine.Callbacks{
		OnEngineStart: func(symbols []string, interval string) error {
			fmt.Printf("Engine started: symbols=%v, interval=%s\n", symbols, interval)

			return nil
		},
		OnEngineStop: func(err error) {
			if err != nil {
				fmt.Printf("Engine stopped with error: %v\n", err)
			} else {
				fmt.Println("Engine stopped")
			}
		},
		OnSignal: func(signal types.Signal) {
			if signal.Type == types.SignalTypeHold {
				return
			}

			fmt.Printf("[%s] %s %s: %s\n",
				signal.Time.Format("15:04:05"), signal.Type, signal.Symbol, signal.Reason)
		},
		OnOrderPlaced: func(o *types.Order) {
			fmt.Printf("Order placed: #%d %s %s %.8f\n", o.ID, o.Side, o.Symbol, o.Quantity)
		},
		OnOrderFilled: func(localID int64, qty float64) {
			fmt.Printf("Order filled: #%d qty=%.8f\n", localID, qty)
		},
		OnOrderVanished: func(localID int64) {
			fmt.Printf("Order closed on venue: #%d\n", localID)
		},
		OnError: func(err error) {
			fmt.Printf("Error: %v\n", err)
		},
	}

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return eng.Run(runCtx, callbacks)
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "trader",
		Usage: "Run the live execution engine against Binance",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML engine configuration file",
			},
			&cli.StringFlag{
				Name:    "symbols",
				Aliases: []string{"s"},
				Usage:   "Comma-separated list of symbols (overrides config)",
			},
			&cli.StringFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Bar interval, e.g. 1m, 15m, 1h (overrides config)",
			},
			&cli.FloatFlag{
				Name:    "notional",
				Aliases: []string{"n"},
				Usage:   "Quote amount per buy signal; 0 runs signal-only",
			},
			&cli.BoolFlag{
				Name:  "testnet",
				Usage: "Use the Binance testnet endpoints",
			},
			&cli.BoolFlag{
				Name:  "schema",
				Usage: "Print the engine config JSON schema and exit",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("schema") {
				schema, err := engine.GetConfigSchema()
				if err != nil {
					return err
				}

				fmt.Println(schema)

				return nil
			}

			return tradeAction(ctx, cmd)
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
