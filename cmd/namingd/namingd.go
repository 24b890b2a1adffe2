package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/nicolagi/scatterfs/internal/config"
	"github.com/nicolagi/scatterfs/internal/naming"
)

func main() {
	if err := agent.Listen(agent.Options{}); err != nil {
		log.Printf("Could not start gops agent: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	base := flag.String("base", config.DefaultBaseDirectoryPath, "Base directory for configuration and data")
	initialize := flag.Bool("init", false, "Write an initial configuration and exit.")
	flag.Parse()
	if *initialize {
		if err := config.Initialize(*base); err != nil {
			log.Fatalf("Could not initialize %q: %v", *base, err)
		}
		return
	}
	cfg, err := config.Load(*base)
	if err != nil {
		log.Fatalf("Could not load config from %q: %v", *base, err)
	}

	servicePort, registrationPort := cfg.ServicePort, cfg.RegistrationPort
	if servicePort == 0 {
		servicePort = naming.ServicePort
	}
	if registrationPort == 0 {
		registrationPort = naming.RegistrationPort
	}
	server, err := naming.NewServer(
		naming.WithHost(cfg.ListenHost),
		naming.WithPorts(servicePort, registrationPort))
	if err != nil {
		log.Fatalf("Could not create naming server: %v", err)
	}
	if err := server.Start(); err != nil {
		log.Fatalf("Could not start naming server: %v", err)
	}

	log.Print("Awaiting a signal to exit.")
	sig := <-sigc
	log.Printf("Got signal %q, stopping.", sig)
	server.Stop()
	agent.Close()
}
