package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"

	"booking/config"
	"booking/logging"
	"booking/utils"
)

type CommandHandler func(ctx context.Context, command string) bool

var (
	app = kingpin.New("booking", "Sharded hotel booking backend.")

	config_path = app.Flag("config", "The configuration file.").Short('c').
			Default("booking.yaml").Envar("BOOKING_CONFIG").String()

	verbose_flag = app.Flag("verbose", "Log at debug level.").Short('v').Bool()

	command_handlers []CommandHandler
)

// loadConfig reads the configuration and applies its logging section. A
// missing default file falls back to the built-in single host layout.
func loadConfig() *config.Config {
	path := *config_path
	if _, err := os.Stat(path); os.IsNotExist(err) && path == "booking.yaml" {
		path = ""
	}
	cfg, err := config.Load(path)
	kingpin.FatalIfError(err, "Unable to load config")

	level := cfg.Logging.Level
	if *verbose_flag {
		level = "debug"
	}
	kingpin.FatalIfError(logging.Configure(level, cfg.Logging.Format), "Logging")
	return cfg
}

func banner(role, addr string) {
	logger := logging.GetLogger("main")
	ip, err := utils.GetLocalIp()
	if err != nil {
		logger.WithError(err).Warn("Failed to get local IP")
		ip = "unknown"
	}
	logger.Infof("Booking %s started | Host IP:%s | Addr:%s", role, ip, addr)
}

func main() {
	app.HelpFlag.Short('h')
	app.UsageTemplate(kingpin.CompactUsageTemplate)
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, handler := range command_handlers {
		if handler(ctx, command) {
			return
		}
	}
	kingpin.Fatalf("Command %s not handled", command)
}
