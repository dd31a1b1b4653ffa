// Command export writes CSV snapshots of the event and credential logs to a
// local directory, or to S3 when export.s3_bucket is set. It only reads the
// logs and is safe to run while the server is live.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ignite/phishing-simulator/internal/config"
	"github.com/ignite/phishing-simulator/internal/export"
	"github.com/ignite/phishing-simulator/internal/pkg/logger"
	"github.com/ignite/phishing-simulator/internal/repository/filestore"
	svctracking "github.com/ignite/phishing-simulator/internal/service/tracking"
)

func main() {
	cfg, err := config.LoadFromEnv(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(!cfg.Logging.LogPII)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	events, creds, err := filestore.OpenLogsReadOnly(cfg.Storage.DataDir)
	if err != nil {
		return err
	}
	defer events.Close()
	defer creds.Close()

	var sink export.Sink
	if cfg.Export.S3Bucket != "" {
		sink, err = export.NewS3Sink(ctx, cfg.Export.S3Bucket, cfg.Export.S3Prefix, cfg.Export.S3Region)
	} else {
		sink, err = export.NewDirSink(cfg.Export.Dir)
	}
	if err != nil {
		return err
	}

	source := svctracking.NewRecorder(nil, events, creds, nil)
	locations, err := export.NewExporter(source, sink).Run(ctx)
	if err != nil {
		return err
	}
	for _, loc := range locations {
		logger.Info("report written", "location", loc)
	}
	return nil
}
