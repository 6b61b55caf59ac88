package main

import (
	"context"

	"github.com/alecthomas/kingpin/v2"

	"booking/bus"
	"booking/reducer"
)

var (
	reducer_cmd = app.Command("reducer", "Run the reducer.")
)

func doReducer(ctx context.Context) {
	cfg := loadConfig()

	lis, err := bus.Listen(cfg.Reducer.Addr)
	kingpin.FatalIfError(err, "Reducer listener")

	r := reducer.New(reducer.Options{
		Workers:      cfg.NumWorkers(),
		MasterAddr:   cfg.Reducer.MasterAddr,
		RoundTimeout: cfg.Reducer.RoundTimeout,
		DialTimeout:  cfg.Transport.DialTimeout,
		MaxFrame:     cfg.Transport.MaxFrameBytes,
	})
	banner("reducer", cfg.Reducer.Addr)
	kingpin.FatalIfError(r.Run(ctx, lis), "Reducer")
}

func init() {
	command_handlers = append(command_handlers, func(ctx context.Context, command string) bool {
		if command != reducer_cmd.FullCommand() {
			return false
		}
		doReducer(ctx)
		return true
	})
}
