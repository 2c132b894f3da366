package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	var transport, host string
	var port int
	flag.StringVar(&transport, "transport", "stdio", "transport to serve on: stdio or http")
	flag.StringVar(&transport, "t", "stdio", "shorthand for -transport")
	flag.StringVar(&host, "host", "127.0.0.1", "bind host for the http transport")
	flag.IntVar(&port, "port", 8001, "bind port for the http transport")
	flag.IntVar(&port, "p", 8001, "shorthand for -port")
	flag.Parse()

	flagsSet := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { flagsSet[f.Name] = true })

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	app := mustBootstrapServer(log)
	defer app.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	switch transport {
	case "stdio":
		err = app.srv.runStdio(ctx, os.Stdin, os.Stdout)
	case "http":
		addr := fmt.Sprintf("%s:%d", host, port)
		// Config address applies unless the CLI overrode host or port.
		if app.cfg.CaseLens.HTTPAddr != "" && !flagsSet["host"] && !flagsSet["port"] && !flagsSet["p"] {
			addr = app.cfg.CaseLens.HTTPAddr
		}
		var lis net.Listener
		lis, err = net.Listen("tcp", addr)
		if err == nil {
			err = app.srv.runHTTP(ctx, lis)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown transport %q (expected stdio or http)\n", transport)
		os.Exit(1)
	}
	if err != nil && err != context.Canceled {
		panic(err)
	}
}
