package terminal

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/rustconn/rustconn/lib/catalog"
)

// defaultMaxLogSizeMB bounds a single session-log file before lumberjack
// rotates it; sized generously since a terminal byte stream is mostly
// text and sessions are comparatively short-lived.
const defaultMaxLogSizeMB = 10

// defaultMaxLogBackups caps how many rotated files lumberjack retains per
// connection before the oldest is deleted.
const defaultMaxLogBackups = 3

// OpenSessionLog opens the rotating log-capture sink for a terminal
// session, named "<connection>-<session_id>.log" under conn.Log.Dir, per
// spec.md §4.I. Returns nil, nil if logging is disabled or unconfigured.
func OpenSessionLog(conn *catalog.Connection, sessionID uuid.UUID) (io.WriteCloser, error) {
	if conn.Log == nil || !conn.Log.Enabled || conn.Log.Dir == "" {
		return nil, nil
	}

	name := fmt.Sprintf("%s-%s.log", sanitizeFileName(conn.Name), sessionID)
	return &lumberjack.Logger{
		Filename:   filepath.Join(conn.Log.Dir, name),
		MaxSize:    defaultMaxLogSizeMB,
		MaxBackups: defaultMaxLogBackups,
		Compress:   true,
	}, nil
}

// sanitizeFileName replaces path separators in a connection name so it
// can be embedded in a log file name without escaping conn.Log.Dir.
func sanitizeFileName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch r {
		case '/', '\\', filepath.Separator:
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return "connection"
	}
	return string(out)
}
