// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Command hwplat inspects board descriptions and clock configurations.
//
//	hwplat variants
//	hwplat resources de1soc
//	hwplat resolve 0.2 serial.tx ddram.dqs_p
//	hwplat crg --domain sys_ps:50e6:90 --forward sdram_clock:sys_ps --simulate 2000 de1soc
//
package main

import (
	"fmt"
	"os"

	"github.com/db47h/hwplat"
	"github.com/db47h/hwplat/boards"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	flagBoards   = "boards"
	flagLogLevel = "log-level"
)

func main() {
	app := &cli.App{
		Name:            "hwplat",
		Usage:           "inspect FPGA board descriptions",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagBoards,
				Usage:   "load additional board files from `DIR`",
				EnvVars: []string{"HWPLAT_BOARDS"},
			},
			&cli.StringFlag{
				Name:    flagLogLevel,
				Usage:   "log level (debug, info, warn, error)",
				Value:   "warn",
				EnvVars: []string{"HWPLAT_LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			log, err := newLogger(c.String(flagLogLevel))
			if err != nil {
				return err
			}
			c.App.Metadata = map[string]interface{}{"log": log}
			return nil
		},
		After: func(c *cli.Context) error {
			if log := logger(c); log != nil {
				_ = log.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			variantsCommand,
			resourcesCommand,
			resolveCommand,
			crgCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "hwplat:", err)
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "invalid --"+flagLogLevel)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func logger(c *cli.Context) *zap.Logger {
	if l, ok := c.App.Metadata["log"].(*zap.Logger); ok {
		return l
	}
	return nil
}

// selector returns a selector over the built-in library and the boards found
// in the --boards directory.
func selector(c *cli.Context) (*hwplat.Selector, error) {
	l := boards.NewLoader(logger(c))
	lib, err := l.Library()
	if err != nil {
		return nil, errors.Wrap(err, "load board library")
	}
	dir := c.String(flagBoards)
	if dir == "" {
		return lib, nil
	}
	vs, err := l.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	return hwplat.NewSelector(append(lib.Variants(), vs...)...)
}

func platform(c *cli.Context) (*hwplat.Platform, error) {
	if c.Args().Len() < 1 {
		return nil, errors.New("missing board variant argument")
	}
	sel, err := selector(c)
	if err != nil {
		return nil, err
	}
	return hwplat.New(sel, c.Args().First(), hwplat.WithLogger(logger(c)))
}
