package main

import (
	"context"
	"net"
	"strconv"

	"github.com/alecthomas/kingpin/v2"

	"booking/bus"
	"booking/utils"
	"booking/worker"
)

var (
	worker_cmd  = app.Command("worker", "Run one shard worker.")
	worker_id   = worker_cmd.Flag("id", "Worker id, an index into the workers list.").Required().Int()
	worker_port = worker_cmd.Flag("port", "Listen port. Defaults to the configured address.").String()
)

func doWorker(ctx context.Context) {
	cfg := loadConfig()
	if *worker_id < 0 || *worker_id >= cfg.NumWorkers() {
		kingpin.Fatalf("Worker id %d out of range, %d workers configured", *worker_id, cfg.NumWorkers())
	}

	addr := cfg.Workers[*worker_id].Addr
	if *worker_port != "" {
		port, err := utils.ParsePort(*worker_port)
		kingpin.FatalIfError(err, "Port")
		addr = net.JoinHostPort("", strconv.Itoa(int(port)))
	} else {
		_, port, err := net.SplitHostPort(addr)
		kingpin.FatalIfError(err, "Worker address")
		addr = net.JoinHostPort("", port)
	}

	lis, err := bus.Listen(addr)
	kingpin.FatalIfError(err, "Worker listener")

	w := worker.New(worker.Options{
		ID:          *worker_id,
		ReducerAddr: cfg.Reducer.Addr,
		DialTimeout: cfg.Transport.DialTimeout,
		MaxFrame:    cfg.Transport.MaxFrameBytes,
	})
	banner("worker "+strconv.Itoa(*worker_id), addr)
	kingpin.FatalIfError(w.Run(ctx, lis), "Worker")
}

func init() {
	command_handlers = append(command_handlers, func(ctx context.Context, command string) bool {
		if command != worker_cmd.FullCommand() {
			return false
		}
		doWorker(ctx)
		return true
	})
}
