package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config string `short:"c" long:"config" default:"pumpbot.json" description:"Configuration file"`

	Setup    SetupCommand    `command:"setup" description:"Pick the actuator port and agent, then save the configuration"`
	Run      RunCommand      `command:"run" description:"Run the pattern sequence"`
	Patterns PatternsCommand `command:"patterns" alias:"ls" description:"Print the waypoints of each configured pattern"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "pumpbot - Drive an agent through waypoint patterns with a synchronized pump"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
