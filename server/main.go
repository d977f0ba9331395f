// The MIT License (MIT)
//
// # Copyright (c) 2025 vkuzn
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
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/vkuzn/chatrelay/relay"
)

// VERSION is populated via build flags when packaging official binaries.
var VERSION = "SELFBUILD"

func main() {
	myApp := cli.NewApp()
	myApp.Name = "chatrelay"
	myApp.Usage = "one-to-one TCP chat relay server"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "listen,l",
			Value: "localhost:50000",
			Usage: "server listen address",
		},
		cli.IntFlag{
			Name:  "backlog",
			Value: 128,
			Usage: "listen backlog",
		},
		cli.StringFlag{
			Name:   "log",
			Value:  "",
			Usage:  "specify a log file to output, default goes to stderr",
			EnvVar: "CHATRELAY_LOG",
		},
		cli.StringFlag{
			Name:   "loglevel",
			Value:  "info",
			Usage:  "logging level: debug, info, warn, error",
			EnvVar: "CHATRELAY_LOGLEVEL",
		},
		cli.BoolFlag{
			Name:  "quiet",
			Usage: "suppress per-message and per-connection logging",
		},
		cli.StringFlag{
			Name:  "c",
			Value: "", // when set, the referenced JSON file must exist on disk
			Usage: "config from json file, which will override the command from shell",
		},
	}
	myApp.Action = func(c *cli.Context) error {
		config := Config{}
		config.Listen = c.String("listen")
		config.Backlog = c.Int("backlog")
		config.Log = c.String("log")
		config.LogLevel = c.String("loglevel")
		config.Quiet = c.Bool("quiet")

		if c.String("c") != "" {
			err := parseJSONConfig(&config, c.String("c"))
			checkError(err)
		}

		logger := logrus.New()
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		level, err := logrus.ParseLevel(config.LogLevel)
		checkError(err)
		if config.Quiet && level > logrus.WarnLevel {
			level = logrus.WarnLevel
		}
		logger.SetLevel(level)

		// Redirect logs when the user supplied a dedicated log file.
		if config.Log != "" {
			f, err := os.OpenFile(config.Log, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
			checkError(err)
			defer f.Close()
			logger.SetOutput(f)
		}

		logger.Println("version:", VERSION)
		logger.Println("listen:", config.Listen)
		logger.Println("backlog:", config.Backlog)
		logger.Println("loglevel:", config.LogLevel)
		logger.Println("quiet:", config.Quiet)

		host, _, err := net.SplitHostPort(config.Listen)
		checkError(err)
		if host == "" || host == "0.0.0.0" {
			color.Red("WARNING: listening on all interfaces, the chat protocol is plaintext.")
		}

		srv, err := relay.NewServer(config.Listen, config.Backlog, logger)
		checkError(err)

		go sigHandler(srv, logger)

		return errors.Wrap(srv.Run(), "run")
	}
	myApp.Run(os.Args)
}

func sigHandler(srv *relay.Server, logger *logrus.Logger) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	signal.Ignore(syscall.SIGPIPE)

	sig := <-ch
	logger.WithField("signal", sig.String()).Info("shutting down")
	srv.Close()
	os.Exit(0)
}

// checkError logs the supplied fatal error and terminates the process.
func checkError(err error) {
	if err != nil {
		log.Printf("%+v\n", err)
		os.Exit(-1)
	}
}
