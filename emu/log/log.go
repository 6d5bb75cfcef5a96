// Package log provides leveled logging split into modules that can be
// enabled and disabled independently, so that chatty subsystems (the memory
// map, the debugger protocol) can be silenced without losing warnings.
package log

import (
	"io"

	"gopkg.in/Sirupsen/logrus.v0"
)

type Level uint8

// Mirrors logrus severity order: lower is more severe.
const (
	PanicLevel Level = iota
	FatalLevel
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
)

var levelNames = [...]string{"panic", "fatal", "error", "warn", "info", "debug"}

// LevelByName maps a severity name to its Level.
func LevelByName(name string) (Level, bool) {
	for i, n := range levelNames {
		if n == name {
			return Level(i), true
		}
	}
	return 0, false
}

// LevelNames returns the level names, most severe first.
func LevelNames() []string {
	return levelNames[:]
}

var maxLevel = DebugLevel

// SetMaxLevel drops entries more verbose than lvl, for every module.
func SetMaxLevel(lvl Level) {
	maxLevel = lvl
}

func init() {
	// Level filtering happens in Module.Enabled, logrus must let
	// everything through.
	logrus.SetLevel(logrus.DebugLevel)
}

var disabled bool

// Disable turns off all logging, whatever the enabled modules.
func Disable() {
	disabled = true
	logrus.SetOutput(io.Discard)
}

// A Contexter adds fields describing its current state to every entry
// logged while it is registered. The machine registers itself so that each
// line carries the cycle counter.
type Contexter interface {
	AddLogContext(e *EntryZ)
}

var contexts []Contexter

func RegisterContext(c Contexter) {
	contexts = append(contexts, c)
}

type Fields logrus.Fields

// Entry carries a module and lazily-built fields. The zero overhead path:
// fields functions only run if the entry ends up being logged.
type Entry struct {
	mod        Module
	lazyfields [6]func() Fields
}

func (entry Entry) log() *logrus.Entry {
	final := logrus.StandardLogger().WithField("_mod", modNames[entry.mod])
	for _, lf := range entry.lazyfields {
		if lf != nil {
			final = final.WithFields(logrus.Fields(lf()))
		}
	}

	var z EntryZ
	for _, c := range contexts {
		c.AddLogContext(&z)
	}
	if z.zfidx > 0 {
		fields := make(logrus.Fields, z.zfidx)
		for i := range z.zfbuf[:z.zfidx] {
			fields[z.zfbuf[i].Key] = z.zfbuf[i].Value()
		}
		final = final.WithFields(fields)
	}
	return final
}

func (entry Entry) WithFields(fields Fields) Entry {
	return entry.WithDelayedFields(func() Fields { return fields })
}

func (entry Entry) WithField(key string, value any) Entry {
	return entry.WithDelayedFields(func() Fields {
		return Fields{key: value}
	})
}

// WithDelayedFields records a fields function to be evaluated only when the
// entry is actually logged. Past the fixed capacity, extra functions are
// dropped.
func (entry Entry) WithDelayedFields(getfields func() Fields) Entry {
	for idx := range entry.lazyfields {
		if entry.lazyfields[idx] == nil {
			entry.lazyfields[idx] = getfields
			return entry
		}
	}
	return entry
}

func (entry Entry) Debug(args ...any) {
	if entry.mod.Enabled(DebugLevel) {
		entry.log().Debug(args...)
	}
}

func (entry Entry) Info(args ...any) {
	if entry.mod.Enabled(InfoLevel) {
		entry.log().Info(args...)
	}
}

func (entry Entry) Warn(args ...any) {
	if entry.mod.Enabled(WarnLevel) {
		entry.log().Warn(args...)
	}
}

func (entry Entry) Error(args ...any) {
	if entry.mod.Enabled(ErrorLevel) {
		entry.log().Error(args...)
	}
}

func (entry Entry) Fatal(args ...any) {
	if entry.mod.Enabled(FatalLevel) {
		entry.log().Fatal(args...)
	}
}

func (entry Entry) Debugf(format string, args ...any) {
	if entry.mod.Enabled(DebugLevel) {
		entry.log().Debugf(format, args...)
	}
}

func (entry Entry) Infof(format string, args ...any) {
	if entry.mod.Enabled(InfoLevel) {
		entry.log().Infof(format, args...)
	}
}

func (entry Entry) Warnf(format string, args ...any) {
	if entry.mod.Enabled(WarnLevel) {
		entry.log().Warnf(format, args...)
	}
}

func (entry Entry) Errorf(format string, args ...any) {
	if entry.mod.Enabled(ErrorLevel) {
		entry.log().Errorf(format, args...)
	}
}

func (entry Entry) Fatalf(format string, args ...any) {
	if entry.mod.Enabled(FatalLevel) {
		entry.log().Fatalf(format, args...)
	}
}
