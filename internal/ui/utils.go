package ui

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Colors for consistent UI
const (
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorReset  = "\033[0m"
)

var stdin = bufio.NewReader(os.Stdin)

// PrintWarning displays a warning message with consistent formatting
func PrintWarning(message string) {
	fmt.Printf("%s\nWarning:%s\n", ColorYellow, ColorReset)
	fmt.Printf("%s%s%s\n", ColorYellow, message, ColorReset)
}

// PrintError displays an error message with consistent formatting
func PrintError(message string) {
	fmt.Printf("\n%sError: %s%s\n", ColorRed, message, ColorReset)
}

// PrintSuccess displays a success message with consistent formatting
func PrintSuccess(message string) {
	fmt.Printf("\n%s%s%s\n", ColorGreen, message, ColorReset)
}

// PrintInfo displays an info message with consistent formatting
func PrintInfo(message string) {
	fmt.Printf("%s%s%s", ColorBlue, message, ColorReset)
}

// ReadString reads a string from stdin with trimming
func ReadString(prompt string) string {
	PrintInfo(prompt)
	input, _ := stdin.ReadString('\n')
	return strings.TrimSpace(input)
}

// ReadStringDefault returns def when the user just presses enter.
func ReadStringDefault(prompt, def string) string {
	input := ReadString(fmt.Sprintf("%s [%s]: ", prompt, def))
	if input == "" {
		return def
	}
	return input
}

// ReadInt reads an integer from stdin with validation
func ReadInt(prompt string, min, max int) (int, error) {
	input := ReadString(prompt)

	value, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", input)
	}

	if value < min || value > max {
		return 0, fmt.Errorf("value must be between %d and %d", min, max)
	}

	return value, nil
}

// ReadIntDefault reads an integer, returning def on empty input.
func ReadIntDefault(prompt string, def, min, max int) (int, error) {
	input := ReadString(fmt.Sprintf("%s [%d]: ", prompt, def))
	if input == "" {
		return def, nil
	}

	value, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", input)
	}
	if value < min || value > max {
		return 0, fmt.Errorf("value must be between %d and %d", min, max)
	}
	return value, nil
}

// ReadYearSpan asks for a start and end year, defaulting to the configured span.
func ReadYearSpan(defStart, defEnd int) (int, int, error) {
	start, err := ReadIntDefault("Enter the start year", defStart, 1981, 2100)
	if err != nil {
		return 0, 0, err
	}
	end, err := ReadIntDefault("Enter the end year", defEnd, start, 2100)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
