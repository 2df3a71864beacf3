package config

import (
	"os"
	"path/filepath"
)

// Policies are the user options that change how notifications are followed.
type Policies struct {
	KeepExecPoint       bool
	SelectOnRunning     bool
	SelectOnStopped     bool
	SelectOnExited      bool
	SelectFollow        bool
	TerminalAutoShow    bool
	TerminalAutoHide    bool
	TerminalShowOnError bool
	OpenPanelOnStart    bool
	// AsyncBreakBugs ignores =breakpoint-created/-modified bodies, for
	// backends known to send them out of order.
	AsyncBreakBugs bool
}

type Config struct {
	DBPath   string
	Profile  string
	Policies Policies
}

func DefaultConfig() Config {
	return Config{
		DBPath:  defaultDBPath(),
		Profile: "default",
		Policies: Policies{
			SelectOnRunning:  false,
			SelectOnStopped:  true,
			SelectOnExited:   true,
			SelectFollow:     true,
			TerminalAutoShow: true,
			TerminalAutoHide: false,
			OpenPanelOnStart: true,
		},
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "miscope.db"
	}
	return filepath.Join(home, ".local", "state", "miscope", "breaks.db")
}
