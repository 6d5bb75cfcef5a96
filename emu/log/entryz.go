package log

import (
	"fmt"
	"sync"
	"time"

	"gopkg.in/Sirupsen/logrus.v0"
)

// EntryZ is the fast logging path: typed fields accumulate into a fixed
// buffer, nothing is formatted until End, and a disabled module costs a
// single nil check per chained call.
//
//	log.ModCPU.WarnZ("halted").Hex16("PC", pc).Hex8("opcode", op).End()
type EntryZ struct {
	mod   Module
	lvl   Level
	msg   string
	zfbuf [16]ZField
	zfidx int
}

var zpool = sync.Pool{New: func() any { return new(EntryZ) }}

func NewEntryZ() *EntryZ {
	return zpool.Get().(*EntryZ)
}

func (e *EntryZ) append(f ZField) *EntryZ {
	if e == nil {
		return nil
	}
	if e.zfidx < len(e.zfbuf) {
		e.zfbuf[e.zfidx] = f
		e.zfidx++
	}
	return e
}

func (e *EntryZ) Bool(key string, v bool) *EntryZ {
	return e.append(ZField{Type: FieldTypeBool, Key: key, Boolean: v})
}

func (e *EntryZ) String(key, v string) *EntryZ {
	return e.append(ZField{Type: FieldTypeString, Key: key, String: v})
}

func (e *EntryZ) Hex8(key string, v uint8) *EntryZ {
	return e.append(ZField{Type: FieldTypeHex8, Key: key, Integer: uint64(v)})
}

func (e *EntryZ) Hex16(key string, v uint16) *EntryZ {
	return e.append(ZField{Type: FieldTypeHex16, Key: key, Integer: uint64(v)})
}

func (e *EntryZ) Int(key string, v int) *EntryZ {
	return e.append(ZField{Type: FieldTypeInt, Key: key, Integer: uint64(v)})
}

func (e *EntryZ) Int64(key string, v int64) *EntryZ {
	return e.append(ZField{Type: FieldTypeInt, Key: key, Integer: uint64(v)})
}

func (e *EntryZ) Uint(key string, v uint64) *EntryZ {
	return e.append(ZField{Type: FieldTypeUint, Key: key, Integer: v})
}

func (e *EntryZ) Error(key string, err error) *EntryZ {
	return e.append(ZField{Type: FieldTypeError, Key: key, Error: err})
}

func (e *EntryZ) Duration(key string, d time.Duration) *EntryZ {
	return e.append(ZField{Type: FieldTypeDuration, Key: key, Duration: d})
}

func (e *EntryZ) Stringer(key string, v fmt.Stringer) *EntryZ {
	return e.append(ZField{Type: FieldTypeStringer, Key: key, Interface: v})
}

// End emits the accumulated entry and recycles it. The receiver must not be
// used afterwards.
func (e *EntryZ) End() {
	if e == nil {
		return
	}

	for _, c := range contexts {
		c.AddLogContext(e)
	}

	fields := make(logrus.Fields, e.zfidx)
	for i := range e.zfbuf[:e.zfidx] {
		fields[e.zfbuf[i].Key] = e.zfbuf[i].Value()
	}
	ent := logrus.StandardLogger().
		WithField("_mod", modNames[e.mod]).
		WithFields(fields)

	switch e.lvl {
	case DebugLevel:
		ent.Debug(e.msg)
	case InfoLevel:
		ent.Info(e.msg)
	case WarnLevel:
		ent.Warn(e.msg)
	case ErrorLevel:
		ent.Error(e.msg)
	case FatalLevel:
		ent.Fatal(e.msg)
	case PanicLevel:
		ent.Panic(e.msg)
	}

	*e = EntryZ{}
	zpool.Put(e)
}
