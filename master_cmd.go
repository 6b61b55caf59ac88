package main

import (
	"context"

	"github.com/alecthomas/kingpin/v2"

	"booking/bus"
	"booking/catalog"
	"booking/engine"
	"booking/master"
)

var (
	master_cmd = app.Command("master", "Run the master.")
)

func doMaster(ctx context.Context) {
	cfg := loadConfig()

	db, err := engine.NewEngine(cfg.Master.UserDBPath)
	kingpin.FatalIfError(err, "Unable to open user database")
	defer db.Close()

	users, err := master.NewRegistry(db, nil)
	kingpin.FatalIfError(err, "Unable to load users")

	m := master.New(master.Options{
		WorkerAddrs: cfg.WorkerAddrs(),
		DialTimeout: cfg.Transport.DialTimeout,
		MaxFrame:    cfg.Transport.MaxFrameBytes,
	}, catalog.New(cfg.Master.CatalogPath), users)

	clientLis, err := bus.Listen(cfg.Master.ClientAddr)
	kingpin.FatalIfError(err, "Client listener")
	reducerLis, err := bus.Listen(cfg.Master.ReducerAddr)
	kingpin.FatalIfError(err, "Reducer listener")

	kingpin.FatalIfError(m.Bootstrap(ctx), "Unable to bootstrap workers")
	banner("master", cfg.Master.ClientAddr)
	kingpin.FatalIfError(m.Run(ctx, clientLis, reducerLis), "Master")
}

func init() {
	command_handlers = append(command_handlers, func(ctx context.Context, command string) bool {
		if command != master_cmd.FullCommand() {
			return false
		}
		doMaster(ctx)
		return true
	})
}
