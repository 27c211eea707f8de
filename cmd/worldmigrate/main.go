// Command worldmigrate rewrites world records stored with an older class
// version at the current version.
//
//	WORLDSTORE_BACKEND=sqlite worldmigrate -sqlite world.db -collections players,quests
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.mercari.io/worldstore/dsmiddleware/dstrace"
	"go.mercari.io/worldstore/migrator"
	"go.mercari.io/worldstore/zaplog"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "worldmigrate: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	log, err := zaplog.New(cfg.LogMode)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	logf := zaplog.Logf(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	targets, err := cfg.targets()
	if err != nil {
		return err
	}

	client, err := cfg.openClient(ctx, logf)
	if err != nil {
		return err
	}
	defer client.Close()

	if cfg.Trace {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return err
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
		defer func() { _ = tp.Shutdown(context.Background()) }()

		client.AppendMiddleware(dstrace.New(dstrace.WithTracerProvider(tp)))

		var span trace.Span
		ctx, span = tp.Tracer("worldmigrate").Start(ctx, "worldmigrate.Run")
		defer span.End()
	}

	reports, err := migrator.New(client, cfg.migratorOptions(logf)...).Run(ctx, targets...)
	for _, line := range migrator.Summary(reports) {
		log.Info(line)
	}
	return err
}
