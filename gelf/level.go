package gelf

import (
	"fmt"
	"strconv"
	"strings"
)

// Level is a syslog severity as carried in the GELF "level" field.
type Level int32

const (
	LevelEmerg Level = iota
	LevelAlert
	LevelCrit
	LevelErr
	LevelWarning
	LevelNotice
	LevelInfo
	LevelDebug
)

var levelNames = [...]string{"EMERG", "ALERT", "CRIT", "ERR", "WARNING", "NOTICE", "INFO", "DEBUG"}

func (l Level) String() string {
	if l.Valid() {
		return levelNames[l]
	}
	return fmt.Sprintf("Level(%d)", int32(l))
}

func (l Level) Valid() bool {
	return l >= LevelEmerg && l <= LevelDebug
}

// ParseLevel accepts either the numeric severity (0-7) or its syslog
// name, case-insensitively.  ERROR and WARN are accepted as aliases.
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < int(LevelEmerg) || n > int(LevelDebug) {
			return 0, fmt.Errorf("gelf: level %d out of range 0-7", n)
		}
		return Level(n), nil
	}

	name := strings.ToUpper(s)
	switch name {
	case "ERROR":
		return LevelErr, nil
	case "WARN":
		return LevelWarning, nil
	}
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("gelf: unknown level %q", s)
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText lets a Level be used directly as a config or flag value.
func (l *Level) UnmarshalText(b []byte) error {
	lvl, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = lvl
	return nil
}
