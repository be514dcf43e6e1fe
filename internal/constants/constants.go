// Package constants defines shared constants used across the hookguard codebase.
package constants

import "os"

// File permissions
const (
	DirMode  os.FileMode = 0755
	FileMode os.FileMode = 0644
	// StateDirMode and StateFileMode guard per-user state in the shared temp dir.
	StateDirMode  os.FileMode = 0700
	StateFileMode os.FileMode = 0600
)

// Environment variables
const (
	EnvConfigDir = "HOOKGUARD_CONFIG"
	EnvStateDir  = "HOOKGUARD_STATE_DIR"
	EnvSessionID = "HOOKGUARD_SESSION_ID"
)

// Application paths
const (
	AppName         = "hookguard"
	XDGConfigSubdir = ".config"
	XDGDataSubdir   = ".local/share"
	ClaudeConfigDir = ".claude"
	ClaudePlansDir  = "plans"
	ConfigFileName  = "config.toml"
	LogFileName     = "hookguard.log"
	AuditFileName   = "audit.log"
	CountsFileName  = "error-counts.json"
	ErrorsFileName  = "errors.jsonl"
)
