// Package teamkey encodes a (team, window) pair into a single string key and back.
//
// Keys look like "River:2010" or "River:all_time". Decoding splits on the last
// separator, so the round trip is exact for every team name without one.
package teamkey

import (
	"strconv"
	"strings"
)

const (
	// Separator joins the team name and the window selector.
	Separator = ":"
	// AllTimeLiteral is the window selector covering the entire history.
	AllTimeLiteral = "all_time"
)

// Window selects the time scope of a stats row: a specific year or all time.
type Window struct {
	year    int
	allTime bool
}

// AllTime is the window spanning every match in the table.
var AllTime = Window{allTime: true}

// Year returns the trailing window ending before y.
func Year(y int) Window { return Window{year: y} }

// IsAllTime reports whether w is the all-time sentinel.
func (w Window) IsAllTime() bool { return w.allTime }

// Year returns the window's year; ok is false for AllTime.
func (w Window) Year() (year int, ok bool) { return w.year, !w.allTime }

func (w Window) String() string {
	if w.allTime {
		return AllTimeLiteral
	}
	return strconv.Itoa(w.year)
}

// ParseWindow reads a window selector as written by String.
func ParseWindow(s string) (Window, error) {
	if s == AllTimeLiteral {
		return AllTime, nil
	}
	y, err := strconv.Atoi(s)
	if err != nil || strconv.Itoa(y) != s {
		return Window{}, &InvalidKeyError{Key: s, Reason: "window is neither a year nor " + AllTimeLiteral}
	}
	return Year(y), nil
}

// ValidTeam reports whether team can be part of a key.
func ValidTeam(team string) bool {
	return team != "" && !strings.Contains(team, Separator)
}

// Encode builds the key for team within window.
func Encode(team string, window Window) (string, error) {
	if !ValidTeam(team) {
		return "", &InvalidKeyError{Key: team, Reason: "team name is empty or contains " + strconv.Quote(Separator)}
	}
	return team + Separator + window.String(), nil
}

// MustEncode is Encode for team names already validated by the match table.
func MustEncode(team string, window Window) string {
	key, err := Encode(team, window)
	if err != nil {
		panic(err)
	}
	return key
}

// Decode splits key back into its team and window.
func Decode(key string) (string, Window, error) {
	i := strings.LastIndex(key, Separator)
	if i < 0 {
		return "", Window{}, &InvalidKeyError{Key: key, Reason: "missing separator"}
	}
	team, selector := key[:i], key[i+len(Separator):]
	if !ValidTeam(team) {
		return "", Window{}, &InvalidKeyError{Key: key, Reason: "ambiguous or empty team"}
	}
	window, err := ParseWindow(selector)
	if err != nil {
		return "", Window{}, &InvalidKeyError{Key: key, Reason: "window is neither a year nor " + AllTimeLiteral}
	}
	return team, window, nil
}
