package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/vmdiag/jattach/attach"
)

const usageLine = "Usage: jattach <pid> <cmd> [args...]"

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "jattach: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "jattach",
		Usage:     "send Dynamic Attach commands to a running JVM",
		ArgsUsage: "<pid> <cmd> [args...]",
		Description: `Sends one diagnostic command to a running JVM over the HotSpot Dynamic
Attach protocol and mirrors the response to stdout. If the target has no
attach listener yet, it is started via the .attach_pid marker plus SIGQUIT
convention.

Command strings are passed through opaquely. Commands HotSpot understands
include:
   load            load agent library
   properties      print system properties
   agentProperties print agent properties
   datadump        heap histogram
   threaddump      dump all stack traces (like jstack)
   dumpheap        dump heap (like jmap)
   inspectheap     heap histogram (like jmap -histo)
   setflag         modify manageable VM flag
   printflag       print VM flag
   jcmd            execute jcmd command`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a TOML config file.",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Minimum log level. One of [debug,info,warn,error].",
				Value: "info",
			},
			&cli.StringFlag{
				Name:  "tmp-dir",
				Usage: "Directory holding the target's attach socket, if its /tmp is mounted elsewhere in this namespace.",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Give up on the response stream after this long. Zero waits until the target closes the connection.",
			},
		},
		HideHelpCommand: true,
		Action:          run,
	}
}

func run(ctx *cli.Context) error {
	// Argument validation happens before any filesystem access, config file
	// included.
	if ctx.NArg() < 2 {
		fmt.Fprintln(ctx.App.Writer, usageLine)
		return cli.Exit("", 1)
	}
	pid, err := strconv.Atoi(ctx.Args().Get(0))
	if err != nil || pid <= 0 {
		fmt.Fprintln(ctx.App.Writer, usageLine)
		return cli.Exit("", 1)
	}
	command := ctx.Args().Get(1)
	args := ctx.Args().Slice()[2:]

	cfg, err := resolveConfig(ctx)
	if err != nil {
		return err
	}

	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	opts := []attach.Option{
		attach.WithLogger(logger),
		attach.WithOutput(os.Stdout),
	}
	if cfg.TmpDir != "" {
		opts = append(opts, attach.WithTmpDir(cfg.TmpDir))
	}
	if cfg.ResponseTimeout > 0 {
		opts = append(opts, attach.WithResponseTimeout(cfg.ResponseTimeout))
	}

	attacher, err := attach.New(opts...)
	if err != nil {
		return fmt.Errorf("building attacher: %w", err)
	}

	if err := attacher.Attach(ctx.Context, pid, command, args...); err != nil {
		return err
	}
	fmt.Println()
	return nil
}
