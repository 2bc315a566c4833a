package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusBadges = [...]struct {
	label string
	color text.Color
}{
	statusInfo:  {"INFO", text.FgBlue},
	statusOK:    {"OK", text.FgGreen},
	statusWarn:  {"WARN", text.FgYellow},
	statusError: {"ERROR", text.FgRed},
}

// renderStatusLine prints "  Label:   [KIND] message" with labels padded to
// one column.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	badge := statusBadges[kind]
	line := fmt.Sprintf("  %-24s [%s]", label+":", badge.label)
	if message != "" {
		line += " " + message
	}
	return paint(line, badge.color, colorize)
}

func renderSectionHeader(title string, colorize bool) string {
	return paint("== "+strings.TrimSpace(title)+" ==", text.FgBlue, colorize)
}

// paint colors s for terminals. go-pretty additionally honours NO_COLOR and
// FORCE_COLOR.
func paint(s string, color text.Color, colorize bool) string {
	if !colorize {
		return s
	}
	return color.Sprint(s)
}

// shouldColorize reports whether w is a terminal.
func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
