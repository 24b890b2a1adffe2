package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/nicolagi/scatterfs/internal/backend"
	"github.com/nicolagi/scatterfs/internal/config"
	"github.com/nicolagi/scatterfs/internal/remote"
	"github.com/nicolagi/scatterfs/internal/storage"
)

func main() {
	if err := agent.Listen(agent.Options{}); err != nil {
		log.Printf("Could not start gops agent: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	base := flag.String("base", config.DefaultBaseDirectoryPath, "Base directory for configuration and data")
	flag.Parse()
	cfg, err := config.Load(*base)
	if err != nil {
		log.Fatalf("Could not load config from %q: %v", *base, err)
	}
	if cfg.NamingAddr == "" {
		log.Fatal("No naming-addr in configuration.")
	}

	b, err := backend.New(cfg)
	if err != nil {
		log.Fatalf("Could not create backend: %v", err)
	}
	server, err := storage.NewServer(b)
	if err != nil {
		log.Fatalf("Could not create storage server: %v", err)
	}
	reg := remote.NewRegistrationStub(cfg.NamingAddr, nil)
	if err := server.Start(cfg.ListenHost, reg); err != nil {
		log.Fatalf("Could not start storage server: %v", err)
	}

	log.Print("Awaiting a signal to exit.")
	sig := <-sigc
	log.Printf("Got signal %q, stopping.", sig)
	server.Stop()
	agent.Close()
}
