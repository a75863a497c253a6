// ABOUTME: Interactive prompt UI functions for user input
// ABOUTME: Handles yes/no confirmations before destructive runs
package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pluginsync/pluginsync/internal/config"
)

// ErrUserCancelled is returned when the user declines a confirmation
var ErrUserCancelled = errors.New("cancelled by user")

// promptInput is swapped in tests
var promptInput io.Reader = os.Stdin

// Confirm asks before a destructive step. The default answer is no, and a
// refusal is ErrUserCancelled. --yes skips the prompt.
func Confirm(prompt string) error {
	if config.YesFlag {
		return nil
	}
	if !PromptYesNo(prompt, false) {
		return ErrUserCancelled
	}
	return nil
}

// PromptYesNo prompts for yes/no confirmation with configurable default
func PromptYesNo(prompt string, defaultYes bool) bool {
	if config.YesFlag {
		return defaultYes
	}

	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}

	fmt.Printf("%s %s: ", prompt, hint)

	input, err := bufio.NewReader(promptInput).ReadString('\n')
	if err != nil && input == "" {
		return defaultYes
	}

	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return defaultYes
	}

	return input == "y" || input == "yes"
}
