// Package env collects the process environment lookups hookguard depends on
// (home directory, temp dir, user name, parent pid, clock) into one value so
// that callers receive them as parameters instead of reading ambient state.
package env

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgerlanc/hookguard/internal/constants"
)

// Env holds every environment-derived value the engine reads.
// The zero value is usable; empty fields fall back as documented on each method.
type Env struct {
	// Home is the invoking user's home directory.
	Home string
	// TempDir is the system temp directory.
	TempDir string
	// User is the OS user name, used to keep per-user state apart.
	User string
	// PPID is the parent process id, used as the last-resort session id.
	PPID int
	// Getenv looks up environment variables. Nil means "no variables set".
	Getenv func(string) string
	// Now returns the current time. Nil means time.Now.
	Now func() time.Time
}

// FromOS builds an Env from the running process.
// Lookup failures leave the corresponding field empty.
func FromOS() Env {
	e := Env{
		TempDir: os.TempDir(),
		PPID:    os.Getppid(),
		Getenv:  os.Getenv,
		Now:     time.Now,
	}
	if home, err := os.UserHomeDir(); err == nil {
		e.Home = home
	}
	if u, err := user.Current(); err == nil {
		e.User = u.Username
	} else if name := os.Getenv("USER"); name != "" {
		e.User = name
	}
	return e
}

// Lookup returns the value of the named environment variable.
func (e Env) Lookup(key string) string {
	if e.Getenv == nil {
		return ""
	}
	return e.Getenv(key)
}

// Clock returns the current time.
func (e Env) Clock() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// SessionID resolves the session id for an invocation.
// Order: the id supplied by the host, HOOKGUARD_SESSION_ID, then "ppid-<ppid>".
func (e Env) SessionID(fromInput string) string {
	if fromInput != "" {
		return fromInput
	}
	if id := e.Lookup(constants.EnvSessionID); id != "" {
		return id
	}
	return fmt.Sprintf("ppid-%d", e.PPID)
}

// StateDir returns the per-user directory holding tracker state.
// Order: HOOKGUARD_STATE_DIR, then <TempDir>/hookguard-<user>.
func (e Env) StateDir() string {
	if dir := e.Lookup(constants.EnvStateDir); dir != "" {
		return dir
	}
	tmp := e.TempDir
	if tmp == "" {
		tmp = os.TempDir()
	}
	name := constants.AppName
	if u := sanitizeUser(e.User); u != "" {
		name += "-" + u
	}
	return filepath.Join(tmp, name)
}

// DataDir returns ~/.local/share/hookguard, or "" when the home directory is unknown.
func (e Env) DataDir() string {
	if e.Home == "" {
		return ""
	}
	return filepath.Join(e.Home, constants.XDGDataSubdir, constants.AppName)
}

// ExpandHome replaces a leading "~" with the home directory.
func (e Env) ExpandHome(path string) string {
	if e.Home == "" {
		return path
	}
	if path == "~" {
		return e.Home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(e.Home, path[2:])
	}
	return path
}

// sanitizeUser strips path separators (DOMAIN\user on Windows) from a user name.
func sanitizeUser(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `\/`); i >= 0 {
		name = name[i+1:]
	}
	return name
}
