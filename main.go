package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli"

	"github.com/mediagrab/mediagrab/api"
	"github.com/mediagrab/mediagrab/artifact"
	"github.com/mediagrab/mediagrab/config"
	"github.com/mediagrab/mediagrab/extractor"
	"github.com/mediagrab/mediagrab/identity"
	"github.com/mediagrab/mediagrab/notifier"
	"github.com/mediagrab/mediagrab/platform"
	"github.com/mediagrab/mediagrab/processor"
	"github.com/mediagrab/mediagrab/storage"
	"github.com/mediagrab/mediagrab/transcoder"
)

var (
	sigCh = make(chan os.Signal, 1)
	cfg   config.Config
)

func main() {
	app := cli.NewApp()
	app.Name = "mediagrab"
	app.Usage = "Media URL download service"
	app.HideVersion = true

	app.Commands = cli.Commands{
		cli.Command{
			Name:  "server",
			Usage: "Start the API server and the job processor",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "host",
					Usage: "`HOST` to listen on",
				},
				cli.IntFlag{
					Name:  "port, p",
					Usage: "`PORT` to listen on",
				},
				cli.StringFlag{
					Name:  "config, c",
					Usage: "`FILE` to load config from",
					Value: "config.json",
				},
			},
			Action: serverAction,
			Before: parseConfig,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serverAction(c *cli.Context) error {
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if c.String("host") != "" {
		cfg.API.Host = c.String("host")
	}
	if c.Int("port") != 0 {
		cfg.API.Port = c.Int("port")
	}

	store := storage.New()

	artLogger := log.New(os.Stderr, "[artifact] ", log.Ldate|log.Ltime)
	artifacts, err := artifact.New(cfg.Processor.ArtifactDir, artLogger)
	if err != nil {
		return err
	}

	extLogger := log.New(os.Stderr, "[extractor] ", log.Ldate|log.Ltime)
	ext := extractor.New(extLogger)
	if cfg.Processor.ExtractorBin != "" {
		ext.Bin = cfg.Processor.ExtractorBin
	}

	trans := transcoder.New(log.New(os.Stderr, "[transcoder] ", log.Ldate|log.Ltime))
	if cfg.Processor.TranscoderBin != "" {
		trans.Bin = cfg.Processor.TranscoderBin
	}

	cookies := make(map[platform.Platform]string)
	for name, blob := range cfg.Identity.Cookies {
		cookies[platform.Platform(name)] = blob
	}
	rotator := identity.New(cookies)

	notifLogger := log.New(os.Stderr, "[notifier] ", log.Ldate|log.Ltime)
	notif, err := notifier.New(cfg.Backends, notifLogger)
	if err != nil {
		return err
	}

	procLogger := log.New(os.Stderr, "[processor] ", log.Ldate|log.Ltime)
	proc, err := processor.New(store, artifacts, ext, trans, rotator, notif, procLogger)
	if err != nil {
		return err
	}
	proc.Retention = time.Duration(cfg.Processor.RetentionMinutes) * time.Minute
	proc.HardCeiling = time.Duration(cfg.Processor.WatchdogMinutes) * time.Minute
	proc.SweepInterval = time.Duration(cfg.Processor.SweepIntervalSeconds) * time.Second
	proc.StatsIntvl = time.Duration(cfg.Processor.StatsInterval) * time.Millisecond
	proc.DiskHigh = cfg.Processor.DiskHigh
	proc.DiskLow = cfg.Processor.DiskLow

	closeChan := make(chan struct{})
	go proc.Start(closeChan)

	apiLogger := log.New(os.Stderr, "[api] ", log.Ldate|log.Ltime)
	as := api.New(store, proc, ext, rotator, artifacts,
		cfg.API.Host, cfg.API.Port, cfg.API.HeartbeatPath, apiLogger)
	go func() {
		apiLogger.Println(fmt.Sprintf("Listening on %s...", as.Server.Addr))
		err := as.Server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			apiLogger.Fatal(err)
		}
	}()

	<-sigCh
	apiLogger.Println("Shutting down gracefully...")
	if err := as.Server.Shutdown(context.TODO()); err != nil {
		return err
	}

	proc.Log.Println("Shutting down...")
	closeChan <- struct{}{}
	proc.Log.Println("Waiting for running jobs to finish...")
	<-closeChan

	notif.Stop()
	proc.Log.Println("Bye!")
	return nil
}

// parseConfig loads the .env file (if any) and then the JSON config.
func parseConfig(c *cli.Context) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return err
	}

	var err error
	cfg, err = config.Parse(c.String("config"))
	return err
}
