package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// UI modes accepted by --ui.
const (
	uiAuto  = "auto"
	uiLive  = "live"
	uiPlain = "plain"
)

// uiModeDecision captures how progress is shown.
type uiModeDecision struct {
	useLive bool
	noColor bool
	warning string
}

// isTerminal reports whether a writer is a TTY.
var isTerminal = defaultIsTerminal

// resolveUIMode decides between the live table and plain godog output. Verbose
// logging always forces plain output so log lines stay readable. Colour follows
// the TTY check and NO_COLOR.
func resolveUIMode(mode string, verbose bool, stdout io.Writer) (uiModeDecision, error) {
	tty := isTerminal(stdout)
	_, noColorEnv := lookupEnv("NO_COLOR")
	decision := uiModeDecision{noColor: !tty || noColorEnv}

	normalized := strings.ToLower(strings.TrimSpace(mode))
	if normalized == "" {
		normalized = uiAuto
	}
	switch normalized {
	case uiAuto:
		decision.useLive = tty && !verbose
	case uiLive:
		switch {
		case verbose:
			decision.warning = "Live UI disabled by --verbose; using plain output."
		case !tty:
			decision.warning = "Live UI requested but stdout is not a TTY; falling back to plain output."
		default:
			decision.useLive = true
		}
	case uiPlain:
	default:
		return uiModeDecision{}, fmt.Errorf("invalid ui mode %q (expected auto|live|plain)", mode)
	}
	return decision, nil
}

// defaultIsTerminal inspects stdout for TTY support.
func defaultIsTerminal(stdout io.Writer) bool {
	if stdout == nil {
		return false
	}
	if file, ok := stdout.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	if fder, ok := stdout.(interface{ Fd() uintptr }); ok {
		return term.IsTerminal(int(fder.Fd()))
	}
	return false
}
