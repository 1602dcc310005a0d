package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/forest-guardian/rainfall-cli/internal/config"
	"github.com/forest-guardian/rainfall-cli/internal/delivery"
)

type menuOption struct {
	title   string
	handler func()
}

// Session carries the loaded configuration and the lazily connected platform
// client between menu actions.
type Session struct {
	ctx      context.Context
	config   *config.Config
	platform delivery.Platform
}

func NewSession(ctx context.Context, cfg *config.Config) *Session {
	return &Session{ctx: ctx, config: cfg}
}

// Platform connects on first use.
func (s *Session) Platform() (delivery.Platform, error) {
	if s.platform != nil {
		return s.platform, nil
	}
	client, err := delivery.NewPlatformClient(s.ctx, s.config)
	if err != nil {
		return nil, err
	}
	s.platform = client
	return client, nil
}

// ShowMenu displays the main menu and handles user input until exit is chosen.
func ShowMenu(s *Session) {
	exit := false
	menuOptions := []menuOption{
		{"Analyze monthly rainfall for a country", func() { AnalyzeCountry(s) }},
		{"Analyze monthly rainfall inside a local boundary file", func() { AnalyzeBoundaryFile(s) }},
		{"View the month ranges of a period", func() { ListMonths(s) }},
		{"View a country boundary", func() { ShowBoundary(s) }},
		{"View the list of available boundary files", ListBoundaries},
		{"Exit the application", func() { fmt.Println("Exiting..."); exit = true }},
	}

	for !exit {
		fmt.Println("\033[34m===================\033[0m")
		for i, opt := range menuOptions {
			fmt.Printf("\033[34m%d. %s\033[0m\n", i+1, opt.title)
		}

		input := ReadString("Please enter your choice: ")
		choice, err := strconv.Atoi(strings.TrimSpace(input))
		if err != nil {
			fmt.Printf("\n\033[31mInvalid input. Please enter a number.\033[0m\n")
			continue
		}

		if choice < 1 || choice > len(menuOptions) {
			fmt.Println("\033[31mInvalid choice. Please try again.\033[0m")
			continue
		}

		menuOptions[choice-1].handler()
	}
}
