// Package logging routes the standard logger away from the terminal the TUI
// owns.
package logging

import (
	"io"
	"log"

	tea "github.com/charmbracelet/bubbletea"
)

// Prefix starts every line vv writes to the debug log.
const Prefix = "vv"

// Setup points the standard logger at filename through tea.LogToFile, so
// component logs and Bubble Tea's own share one file. With no filename the
// logger writes nowhere. The returned cleanup silences the logger again and
// closes the file.
func Setup(filename string) (cleanup func(), err error) {
	if filename == "" {
		log.SetOutput(io.Discard)
		return func() {}, nil
	}

	f, err := tea.LogToFile(filename, Prefix)
	if err != nil {
		return nil, err
	}
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	return func() {
		log.SetOutput(io.Discard)
		f.Close()
	}, nil
}
