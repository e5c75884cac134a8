package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/gwillem/pumpbot/pkg/agent"
	"github.com/gwillem/pumpbot/pkg/config"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("pumpbot setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg, err := loadConfig(opts.Config, true)
	if err != nil {
		return err
	}

	ports, err := agent.ListPorts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		fmt.Println("Make sure the pump controller is connected.")
		os.Exit(1)
	}

	// Step 1: actuator port
	fmt.Println(subHeaderStyle.Render("━━━ Pump ━━━"))
	actuatorPort := ask("Which port is the pump controller on?", ports, cfg.Actuator.Port)
	cfg.Actuator.Port = actuatorPort

	// Step 2: agent
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Agent ━━━"))
	kind := askOptions("Which agent should run the patterns?", []huh.Option[string]{
		huh.NewOption("Gantry (two Feetech servos)", agent.KindGantry),
		huh.NewOption("Simulator (no hardware)", agent.KindSim),
	})
	cfg.Agent.Kind = kind

	if kind == agent.KindGantry {
		gantryPort, err := findGantry(cfg.Agent, ports, actuatorPort)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg.Agent.Port = gantryPort
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.SaveTo(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("  Pump:  %s @ %d\n", cfg.Actuator.Port, cfg.Actuator.BaudRate)
	if cfg.Agent.Kind == agent.KindGantry {
		fmt.Printf("  Agent: gantry on %s\n", cfg.Agent.Port)
	} else {
		fmt.Println("  Agent: simulator")
	}
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start a run with: " + headerStyle.Render("pumpbot run"))
	return nil
}

func findGantry(cfg agent.Config, ports []string, skip string) (string, error) {
	fmt.Printf("Scanning for servos %d and %d...\n", cfg.X.ID, cfg.Y.ID)

	var found []string
	for _, port := range ports {
		if port == skip {
			continue
		}
		ok, err := agent.FindGantry(context.Background(), port, cfg.X.ID, cfg.Y.ID)
		if err != nil || !ok {
			continue
		}
		fmt.Printf("  Found gantry on %s\n", port)
		found = append(found, port)
	}

	switch len(found) {
	case 0:
		return "", errors.New("no gantry found; check power and servo IDs")
	case 1:
		return found[0], nil
	default:
		return ask("Which port is the gantry on?", found, cfg.Port), nil
	}
}

func ask(title string, values []string, current string) string {
	options := make([]huh.Option[string], 0, len(values))
	for _, v := range values {
		options = append(options, huh.NewOption(v, v).Selected(v == current))
	}
	return askOptions(title, options)
}

func askOptions(title string, options []huh.Option[string]) string {
	var choice string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title).
				Options(options...).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return choice
}

// loadConfig reads path, falling back to defaults when it does not exist
// and allowDefault is set.
func loadConfig(path string, allowDefault bool) (config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		if allowDefault && errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
		return config.Config{}, fmt.Errorf("no configuration found at %s; run 'pumpbot setup' first", path)
	}
	return config.LoadFrom(path)
}
