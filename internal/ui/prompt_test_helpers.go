// ABOUTME: Test helpers for ui package
// ABOUTME: Provides synchronized access to global YesFlag and prompt input during testing
package ui

import (
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/pluginsync/pluginsync/internal/config"
)

// testYesFlagMutex ensures only one test modifies YesFlag at a time
var testYesFlagMutex sync.Mutex

// withYesFlag safely sets YesFlag for the duration of a test
func withYesFlag(t *testing.T, value bool, fn func()) {
	t.Helper()

	testYesFlagMutex.Lock()
	defer testYesFlagMutex.Unlock()

	originalFlag := config.YesFlag
	defer func() { config.YesFlag = originalFlag }()

	config.YesFlag = value
	fn()
}

// withInput feeds answer to the next prompt
func withInput(t *testing.T, answer string, fn func()) {
	t.Helper()

	original := promptInput
	defer func() { promptInput = original }()

	var r io.Reader = strings.NewReader(answer)
	promptInput = r
	fn()
}
