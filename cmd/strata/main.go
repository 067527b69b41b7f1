package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/Azhovan/strata"
	"github.com/Azhovan/strata/internal/logging"
	"github.com/Azhovan/strata/sourceenv"
	"github.com/Azhovan/strata/sourcefile"
	"github.com/Azhovan/strata/sourceprops"
)

var signalNotify = signal.Notify

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "strata:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	app := kingpin.New("strata", "Resolve layered configuration and inspect the result")
	app.UsageWriter(stdout)
	dir := app.Flag("dir", "Directory holding conf/ resources").Short('d').Default(".").Envar("STRATA_DIR").String()
	props := app.Flag("define", "Property override (name=value), highest precedence").Short('D').StringMap()
	envKey := app.Flag("env-key", "Canonical key that selects the environment").Default(strata.DefaultEnvironmentKey).String()
	prefix := app.Flag("resource-prefix", "Prefix of resource names").Default(strata.DefaultResourcePrefix).String()
	logLevel := app.Flag("log-level", "Log level (debug, info, warn, error)").Default("warn").Envar("STRATA_LOG_LEVEL").String()
	logFormat := app.Flag("log-format", "Log encoding (json, console)").Default("console").Enum("json", "console")

	getCmd := app.Command("get", "Print the resolved value of a key")
	getKey := getCmd.Arg("key", "Canonical key").Required().String()

	dumpCmd := app.Command("dump", "Print the effective configuration")
	dumpJSON := dumpCmd.Flag("json", "Output JSON").Bool()
	dumpSources := dumpCmd.Flag("sources", "Show the source of each key").Bool()
	dumpRedact := dumpCmd.Flag("redact", "Hide the value of a key").Strings()

	envCmd := app.Command("env", "Print the selected environment")

	snapCmd := app.Command("snapshot", "Write a configuration snapshot")
	snapPath := snapCmd.Arg("path", "Output path; {{timestamp}} is expanded").Required().String()
	snapExclude := snapCmd.Flag("exclude", "Leave a key out").Strings()
	snapRedact := snapCmd.Flag("redact", "Hide the value of a key").Strings()

	watchCmd := app.Command("watch", "Reload on changes and print each new configuration")

	command, err := app.Parse(args)
	if err != nil {
		return err
	}

	logger, err := logging.New(*logLevel, *logFormat)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store := strata.NewStore(
		strata.WithResources(sourcefile.Dir(*dir)),
		strata.WithEnvSource(sourceenv.New(sourceenv.Options{})),
		strata.WithPropertySource(sourceprops.New(*props)),
		strata.WithResourcePrefix(*prefix),
		strata.WithLogger(logger),
	)
	loadOpts := []strata.LoadOption{strata.WithEnvironmentKey(*envKey)}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if command == watchCmd.FullCommand() {
		return watch(ctx, stop, store, loadOpts, stdout, logger)
	}

	if err := store.Load(ctx, loadOpts...); err != nil {
		return err
	}

	switch command {
	case getCmd.FullCommand():
		v, ok, err := store.Lookup(*getKey)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("key %q not found", *getKey)
		}
		if v == nil {
			_, err = fmt.Fprintln(stdout, "nil")
			return err
		}
		_, err = fmt.Fprintln(stdout, v.String())
		return err

	case dumpCmd.FullCommand():
		opts := []strata.DumpOption{strata.WithRedactKeys(*dumpRedact...)}
		if *dumpJSON {
			opts = append(opts, strata.AsJSON())
		}
		if *dumpSources {
			opts = append(opts, strata.WithSources())
		}
		return strata.DumpEffective(stdout, store, opts...)

	case envCmd.FullCommand():
		_, err := fmt.Fprintln(stdout, store.Environment())
		return err

	case snapCmd.FullCommand():
		snap, err := strata.CreateSnapshot(store,
			strata.WithExcludeKeys(*snapExclude...),
			strata.WithRedactedKeys(*snapRedact...),
		)
		if err != nil {
			return err
		}
		path, err := strata.WriteSnapshot(snap, *snapPath)
		if err != nil {
			return err
		}
		logger.Info("snapshot written", zap.String("path", path))
		_, err = fmt.Fprintln(stdout, path)
		return err
	}

	return nil
}

func watch(ctx context.Context, stop context.CancelFunc, store *strata.Store, opts []strata.LoadOption, stdout io.Writer, logger *zap.Logger) error {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-quit:
			logger.Info("shutting down watcher")
			stop()
		case <-ctx.Done():
		}
	}()

	snapshots, errs, err := store.Watch(ctx, opts...)
	if err != nil {
		return err
	}

	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				return nil
			}
			fmt.Fprintf(stdout, "# version %d (%s) environment=%q\n", snap.Version, snap.Source, snap.Environment)
			if err := strata.DumpSnapshot(stdout, store, snap, strata.WithSources()); err != nil {
				return err
			}
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			logger.Warn("reload failed", zap.Error(err))
		}
	}
}
