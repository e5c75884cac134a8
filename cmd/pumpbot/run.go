package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gwillem/pumpbot/pkg/actuator"
	"github.com/gwillem/pumpbot/pkg/agent"
	"github.com/gwillem/pumpbot/pkg/api"
	"github.com/gwillem/pumpbot/pkg/config"
	"github.com/gwillem/pumpbot/pkg/sequence"
)

type RunCommand struct {
	Pattern []string `short:"p" long:"pattern" description:"Pattern to run (repeatable); defaults to the configured sequence"`
	Cycles  int      `long:"cycles" default:"-1" description:"Number of cycles (overrides config)"`
	Speed   int      `long:"speed" description:"Agent speed (overrides config)"`
	Pause   float64  `long:"pause" default:"-1" description:"Seconds between cycles (overrides config)"`
	DryRun  bool     `long:"dry-run" description:"Use the simulator and discard pump commands"`
	Plain   bool     `long:"plain" description:"Log to stderr instead of showing the dashboard"`
	HTTP    string   `long:"http" description:"Serve the status API on this address, e.g. :8080"`
}

// apply copies command-line overrides into cfg.
func (c *RunCommand) apply(cfg *config.Config) {
	if len(c.Pattern) > 0 {
		cfg.Sequence = c.Pattern
	}
	if c.Cycles >= 0 {
		cfg.CycleCount = c.Cycles
	}
	if c.Speed > 0 {
		cfg.Speed = c.Speed
	}
	if c.Pause >= 0 {
		cfg.InterCyclePause = c.Pause
	}
	if c.DryRun {
		cfg.Agent.Kind = agent.KindSim
		cfg.Actuator.Driver = actuator.DriverDiscard
	}
}

func (c *RunCommand) Execute(args []string) error {
	cfg, err := loadConfig(opts.Config, c.DryRun)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	c.apply(&cfg)

	plan, err := cfg.Plan()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var logs *logWriter
	logger := log.New(os.Stderr, "", log.LstdFlags)
	if !c.Plain {
		logs = newLogWriter()
		logger = log.New(logs, "", 0)
	}

	channel, err := actuator.Open(cfg.Actuator, logger)
	if err != nil {
		return fmt.Errorf("open actuator: %w", err)
	}

	ag, err := agent.Open(ctx, cfg.Agent, logger)
	if err != nil {
		// The pump must be off on every exit path.
		channel.Push(actuator.Off)
		channel.Close()
		log.Fatalf("Failed to connect agent: %v", err)
	}

	orch := sequence.NewOrchestrator(cfg.Settings(), plan, ag, channel, sequence.WithLogger(logger))
	defer orch.Close()

	if c.HTTP != "" {
		srv := api.NewServer(orch, plan, stop)
		go func() {
			if err := srv.ListenAndServe(ctx, c.HTTP); err != nil {
				logger.Printf("Warning: status API: %v", err)
			}
		}()
		logger.Printf("status API on %s", c.HTTP)
	}

	if c.Plain {
		go func() {
			for range orch.Events() {
			}
		}()
		return report(orch.Run(ctx))
	}

	done := make(chan error, 1)
	go func() { done <- orch.Run(ctx) }()

	p := tea.NewProgram(initialRunModel(orch, cfg, plan, logs, stop), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		stop()
		<-done
		log.Fatalf("Error running program: %v", err)
	}

	// Quitting the dashboard stops the run; wait for shutdown to finish.
	stop()
	return report(<-done)
}

func report(err error) error {
	if errors.Is(err, context.Canceled) {
		fmt.Println("** Interrupted, pump stopped")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Println("** Finished")
	return nil
}
