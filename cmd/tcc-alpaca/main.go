package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"
	bolt "go.etcd.io/bbolt"

	"tcc/pkg/alpaca"
	"tcc/pkg/drivers/rcos"
	"tcc/templates"
)

func run(c *cli.Context) error {
	if c.Bool("debug") {
		log.SetLevel(log.DebugLevel)
	}

	log.Info("TCC Alpaca Server")

	tmpl, err := templates.LoadTemplates()
	if err != nil {
		return fmt.Errorf("failed to load templates: %v", err)
	}

	db, err := bolt.Open(c.String("db"), 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to open database: %v", err)
	}
	defer db.Close()

	store, err := alpaca.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create store: %v", err)
	}

	driver, err := rcos.NewDriver(db, tmpl, log.WithField("device", "tcc"))
	if err != nil {
		return fmt.Errorf("failed to create TCC driver: %v", err)
	}
	defer driver.Close()

	serverDesc := alpaca.ServerDescription{
		Name:                "TCC Alpaca Server",
		Manufacturer:        "RCOS",
		ManufacturerVersion: "1.0",
		Location:            "Observatory",
	}

	devices := []alpaca.Device{
		driver.Focuser(0),
		driver.Rotator(0),
		driver.Switch(0),
	}
	server := alpaca.NewServer(serverDesc, devices, store, tmpl)

	mux := server.AddRoutes()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", c.Int("port")),
		Handler: mux,
	}

	// Channel to listen for interrupt or terminate signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		log.Debugf("Server started on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", srv.Addr, err)
		}
		wg.Done()
	}()

	// Create discovery responder
	discoveryLogger := log.WithField("component", "discovery")
	dr, err := alpaca.NewDiscoveryResponder("0.0.0.0", c.Int("port"), discoveryLogger)
	if err != nil {
		log.Fatalf("Failed to start discovery responder: %v", err)
	}

	wg.Add(1)
	go func() {
		if err := dr.Run(ctx); err != nil {
			log.Fatalf("Discovery responder failed: %v", err)
		}
		wg.Done()
		log.Debug("Discovery responder stopped")
	}()

	<-ctx.Done()

	log.Info("Shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx2); err != nil {
		return fmt.Errorf("server forced to shutdown: %v", err)
	}

	wg.Wait()
	log.Info("Server stopped")
	return nil
}

func main() {
	app := cli.App{
		Name:  "tcc-alpaca",
		Usage: "Alpaca server for the RCOS TCC instrument controller",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Enable debug logging",
				Value:   false,
				EnvVars: []string{"DEBUG"},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on",
				Value:   8090,
				EnvVars: []string{"ALPACA_PORT"},
			},
			&cli.StringFlag{
				Name:    "db",
				Usage:   "Path to the settings database",
				Value:   "tcc-alpaca.db",
				EnvVars: []string{"ALPACA_DB"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
