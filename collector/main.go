// The MIT License (MIT)
//
// # Copyright (c) 2024 rtlspec-collector authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"github.com/pdamian/rtlspec-collector/internal/acceptor"
	"github.com/pdamian/rtlspec-collector/internal/config"
	"github.com/pdamian/rtlspec-collector/internal/stats"
)

// VERSION is injected by buildflags
var VERSION = "SELFBUILD"

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	myApp := cli.NewApp()
	myApp.Name = "rtlspec-collector"
	myApp.Usage = "network collector for compressed RTL-SDR spectrum-sensing records"
	myApp.Version = VERSION
	myApp.ArgsUsage = "<portnumber>"
	myApp.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "p",
			Value: 25,
			Usage: "reception worker pool size",
		},
		cli.IntFlag{
			Name:  "t",
			Value: 3600,
			Usage: "file-rotation period, in seconds",
		},
		cli.StringFlag{
			Name:  "f",
			Value: "dat/",
			Usage: "output root directory",
		},
		cli.StringFlag{
			Name:  "c",
			Value: "",
			Usage: "config from json file, which will override the command from shell",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "specify a log file to output, default goes to stderr",
		},
		cli.StringFlag{
			Name:  "statslog",
			Value: "",
			Usage: "collect ingestion counters to file, aware of timeformat in golang, like: ./stats-20060102.log",
		},
		cli.IntFlag{
			Name:  "statsperiod",
			Value: 60,
			Usage: "counter snapshot period, in seconds",
		},
		cli.BoolFlag{
			Name:  "quiet",
			Usage: "suppress per-connection accept/disconnect log lines",
		},
	}
	myApp.Action = func(c *cli.Context) error {
		if c.NArg() < 1 {
			cli.ShowAppHelp(c)
			return cli.NewExitError("missing required portnumber argument", 1)
		}
		port, err := strconv.ParseUint(c.Args().Get(0), 10, 16)
		if err != nil {
			return cli.NewExitError("invalid portnumber: "+err.Error(), 1)
		}

		cfg := config.Defaults()
		cfg.Port = int(port)
		cfg.PoolSize = c.Int("p")
		cfg.FileTime = c.Int("t")
		cfg.RootPath = c.String("f")
		cfg.Log = c.String("log")
		cfg.StatsLog = c.String("statslog")
		cfg.StatsPeriod = c.Int("statsperiod")
		cfg.Quiet = c.Bool("quiet")

		if c.String("c") != "" {
			if err := config.ParseJSONFile(&cfg, c.String("c")); err != nil {
				checkError(err)
			}
		}

		if cfg.Log != "" {
			f, err := os.OpenFile(cfg.Log, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
			checkError(err)
			defer f.Close()
			log.SetOutput(f)
		}

		log.Println("version:", VERSION)
		log.Println("port:", cfg.Port)
		log.Println("pool size:", cfg.PoolSize)
		log.Println("file time:", cfg.FileTime)
		log.Println("root path:", cfg.RootPath)
		log.Println("stats log:", cfg.StatsLog)
		log.Println("stats period:", cfg.StatsPeriod)
		log.Println("quiet:", cfg.Quiet)

		counters := &stats.Counters{}

		statsCtx, statsCancel := context.WithCancel(context.Background())
		defer statsCancel()
		go stats.Reporter(statsCtx, counters, cfg.StatsLog, time.Duration(cfg.StatsPeriod)*time.Second)

		acc, err := acceptor.New(acceptor.Config{
			Port:     uint16(cfg.Port),
			PoolSize: cfg.PoolSize,
			FileTime: time.Duration(cfg.FileTime) * time.Second,
			RootPath: cfg.RootPath,
			Quiet:    cfg.Quiet,
		}, counters)
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}

		go acc.Run()
		log.Println("listening on:", acc.Addr())

		waitForShutdownSignal()
		log.Println("shutting down")
		acc.Shutdown()

		return nil
	}
	if err := myApp.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

// waitForShutdownSignal blocks until the process receives SIGINT or
// SIGTERM.
func waitForShutdownSignal() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	signal.Ignore(syscall.SIGPIPE)
	<-ch
}

func checkError(err error) {
	if err != nil {
		log.Printf("%+v\n", err)
		os.Exit(1)
	}
}
