/*
 * XQ - Ethernet controller simulator main.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"
	reader "github.com/rcornwell/XQ/command/reader"
	config "github.com/rcornwell/XQ/config/configparser"
	core "github.com/rcornwell/XQ/emu/core"
	master "github.com/rcornwell/XQ/emu/master"
	timer "github.com/rcornwell/XQ/emu/timer"
	telnet "github.com/rcornwell/XQ/telnet"
	logger "github.com/rcornwell/XQ/util/logger"
	"golang.org/x/sync/errgroup"

	_ "github.com/rcornwell/XQ/config/debugconfig"
	_ "github.com/rcornwell/XQ/emu/models"
)

func main() {
	optConfig := getopt.StringLong("config", 'c', "XQ.cfg", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Log debug to console")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file io.Writer
	if *optLogFile != "" {
		logFile, err := os.Create(*optLogFile)
		if err != nil {
			slog.Error("Unable to create log file: " + err.Error())
			os.Exit(1)
		}
		defer logFile.Close()
		file = logFile
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	Logger := slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel, AddSource: false}, optDebug))
	slog.SetDefault(Logger)

	Logger.Info("XQ Started")
	if _, err := os.Stat(*optConfig); os.IsNotExist(err) {
		Logger.Error("Configuration file " + *optConfig + " can't be found")
		os.Exit(1)
	}

	masterChannel := make(chan master.Packet, 64)
	master.SetChannel(masterChannel)

	if err := config.LoadConfigFile(*optConfig); err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}

	emu := core.NewCore(masterChannel)
	clock := timer.NewTimer(masterChannel)
	clock.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	group, ctx := errgroup.WithContext(ctx)

	// Main emulator loop.
	group.Go(func() error {
		return emu.Start(ctx)
	})

	group.Go(func() error {
		<-ctx.Done()
		clock.Shutdown()
		return nil
	})

	// Remote console, when configured.
	if address := telnet.Address(); address != "" {
		server, err := telnet.Start(address, emu)
		if err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
		group.Go(func() error {
			<-ctx.Done()
			server.Stop()
			return nil
		})
	}

	group.Go(func() error {
		defer cancel()
		return reader.ConsoleReader(ctx, emu)
	})

	if err := group.Wait(); err != nil {
		Logger.Error(err.Error())
	}
	Logger.Info("XQ stopped.")
}
