// Command stationd bridges a weather station's serial sensor board to an
// MQTT telemetry bus.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/MatusOllah/slogcolor"
	"github.com/davecgh/go-spew/spew"

	"github.com/ttocsneb/station-comms/internal/config"
	"github.com/ttocsneb/station-comms/internal/mqttclient"
	"github.com/ttocsneb/station-comms/internal/publisher"
	"github.com/ttocsneb/station-comms/internal/scheduler"
	"github.com/ttocsneb/station-comms/internal/scode"
	"github.com/ttocsneb/station-comms/internal/sensor"
	"github.com/ttocsneb/station-comms/internal/serialport"
	"github.com/ttocsneb/station-comms/internal/stationlink"
)

const version = "1.0.0"

const bootRetry = time.Second

var (
	isVerbose   = flag.Bool("verbose", false, "Enable display of DEBUG log messages")
	wantVersion = flag.Bool("version", false, "Print the program version and exit")
)

func main() {
	flag.Parse()

	if *wantVersion {
		fmt.Println(version)
		return
	}

	opts := slogcolor.DefaultOptions
	if *isVerbose {
		opts.Level = slog.LevelDebug
	} else {
		opts.Level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slogcolor.NewHandler(os.Stderr, opts)))

	configPath := "station.toml"
	if flag.NArg() > 0 {
		configPath = flag.Arg(0)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Unable to load configuration", "fn", configPath, "err", err)
		os.Exit(1)
	}
	slog.Debug("Loaded configuration", "fn", configPath, "cfg", spew.Sdump(cfg))

	if err := run(cfg); err != nil {
		slog.Error("stationd exiting on fatal error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	port, err := serialport.Open(cfg.Serial)
	if err != nil {
		return err
	}
	defer port.Close()

	mq, err := mqttclient.Connect(cfg.MQTT)
	if err != nil {
		return err
	}

	outbound := make(chan scode.Code, 16)
	link := stationlink.NewLink(port, outbound)

	manager := stationlink.NewManager(outbound)
	cat := sensor.New()
	router := buildRouter(manager, cat)

	requests := make(chan scheduler.RemoteRequest, 8)
	if err := mq.SubscribeRequests(requests); err != nil {
		return err
	}

	updates := make(chan scheduler.UpdateRequest, 4)

	onInfoRequest := func() {
		info := mqttclient.InfoFromConfig(cfg, "stationd", version)
		if err := mq.PublishInfo(info); err != nil {
			slog.Error("Failed to publish info", "err", err)
		}
	}

	sched := scheduler.New(router, manager, link.Events(), requests, updates, onInfoRequest)
	pub := publisher.New(cat, manager, mq, cfg.MQTT.ID)

	errs := make(chan error, 4)
	go func() { errs <- link.Run() }()
	go func() { sched.Run(); errs <- nil }()
	go func() { errs <- pub.Run(updates) }()

	bootstrap(manager)

	return <-errs
}

// buildRouter wires the protocol handlers in registration order: the ack
// handler first (it unconditionally accepts any O1 with a first
// parameter, so nothing registered after it ever sees a real
// acknowledgement), then the autos bitset, then sensor ingestion.
func buildRouter(manager *stationlink.Manager, cat *sensor.Catalogue) *stationlink.Router {
	router := stationlink.NewRouter()
	router.Handle(stationlink.RuleExact('O', 1), manager.OnAck)
	router.Handle(stationlink.RuleExact('M', 102), cat.IngestAutos)
	router.Handle(stationlink.RuleLetter('S'), cat.IngestSensor)
	return router
}

// bootstrap runs the boot sequence: best-effort clock set, then a
// guaranteed sensor and autos refresh, blocking until both acknowledge.
func bootstrap(manager *stationlink.Manager) {
	manager.Command(stationlink.SetClockCode())

	acked := make(chan stationlink.Key, 2)
	manager.CommandGuaranteed(stationlink.RequestAllSensorsCode(), bootRetry, acked)
	manager.CommandGuaranteed(stationlink.RequestAutosCode(), bootRetry, acked)

	for i := 0; i < 2; i++ {
		<-acked
	}
	slog.Info("Boot sequence complete")
}
