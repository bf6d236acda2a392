// Command stubapi serves an in-memory stand-in of the remote attendance API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/trezcool/rollcall/apps/stubapi/echo"
	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/services/logger"
)

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	assignments := flag.String("assignments", "", "comma-separated id=section/subject classes, e.g. A100=Grade 3 - A/Math")
	flag.Parse()

	conf, err := core.LoadConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger := logsvc.NewConsoleLogger(log.New(os.Stdout, "STUB : ", log.LstdFlags|log.Lmicroseconds), conf)
	if conf.API.Key == "" {
		logger.Fatal("ROLLCALL_API_KEY must be set")
	}

	server := echoapi.NewServer(&echoapi.Options{
		Address: *addr,
		APIKey:  conf.API.Key,
		Debug:   conf.Debug,
		Logger:  logger,
	})
	for _, a := range strings.Split(*assignments, ",") {
		id, cls, ok := strings.Cut(a, "=")
		if !ok {
			continue
		}
		section, subject, _ := strings.Cut(cls, "/")
		server.AddAssignment(strings.TrimSpace(id), strings.TrimSpace(section), strings.TrimSpace(subject))
	}

	go server.Start()
	logger.Info(fmt.Sprintf("stub API listening on %s", *addr))

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Error("could not stop server gracefully", err)
	}
}
