package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

type PatternsCommand struct {
	Pattern []string `short:"p" long:"pattern" description:"Only print this pattern (repeatable)"`
}

func (c *PatternsCommand) Execute(args []string) error {
	cfg, err := loadConfig(opts.Config, true)
	if err != nil {
		return err
	}
	if len(c.Pattern) > 0 {
		cfg.Sequence = c.Pattern
	}

	plan, err := cfg.Plan()
	if err != nil {
		return err
	}

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tablePatternStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)

	var rows [][]string
	for _, step := range plan {
		for i, wp := range step.Waypoints {
			rows = append(rows, []string{
				step.Name(),
				fmt.Sprintf("%d", i),
				fmt.Sprintf("%.2f", wp.X),
				fmt.Sprintf("%.2f", wp.Y),
				fmt.Sprintf("%d", step.Power),
				step.Dwell.String(),
			})
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Pattern", "#", "X", "Y", "Power", "Dwell").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 0 {
				return tablePatternStyle
			}
			return tableCellStyle
		})

	fmt.Println(headerStyle.Render("pumpbot patterns"))
	fmt.Println(t.Render())
	fmt.Printf("speed %d, %d cycle(s), %gs pause between cycles\n", cfg.Speed, cfg.CycleCount, cfg.InterCyclePause)
	return nil
}
