// Package logging builds the zap logger dura emits structured records
// through. The wire format is fixed by external consumers (a metrics
// post-processor scrapes these lines): every record carries target, file,
// name, level, time, and a nested fields object, rather than zap's usual
// flat-field JSON line.
package logging

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// nestedEncoder wraps zapcore.NewMapObjectEncoder to collect a record's
// fields, then serializes the whole record in the shape external
// tooling expects: {target, file, name, level, time, fields}.
type nestedEncoder struct {
	pool   buffer.Pool
	fields *zapcore.MapObjectEncoder
}

// NewEncoder returns a zapcore.Encoder producing one JSON object per line
// with the fixed top-level key set.
func NewEncoder() zapcore.Encoder {
	return &nestedEncoder{
		pool:   buffer.NewPool(),
		fields: zapcore.NewMapObjectEncoder(),
	}
}

func (e *nestedEncoder) clone() *nestedEncoder {
	cloned := zapcore.NewMapObjectEncoder()
	for k, v := range e.fields.Fields {
		cloned.Fields[k] = v
	}
	return &nestedEncoder{pool: e.pool, fields: cloned}
}

func (e *nestedEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	final := e.clone()
	for _, f := range fields {
		f.AddTo(final.fields)
	}

	record := map[string]interface{}{
		"target": ent.LoggerName,
		"file":   callerFile(ent),
		"name":   ent.Message,
		"level":  ent.Level.CapitalString(),
		"time":   ent.Time.UTC().Format(time.RFC3339Nano),
		"fields": final.fields.Fields,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("logging: encoding record: %w", err)
	}

	buf := e.pool.Get()
	buf.Write(data)
	buf.AppendByte('\n')
	return buf, nil
}

func callerFile(ent zapcore.Entry) string {
	if !ent.Caller.Defined {
		return ""
	}
	return fmt.Sprintf("%s:%d", ent.Caller.File, ent.Caller.Line)
}

// The remaining methods implement zapcore.ObjectEncoder by delegating to
// the wrapped MapObjectEncoder in e.fields, so zap can call any of the
// typed Add* methods while building up a log call's fields before
// EncodeEntry runs.

func (e *nestedEncoder) AddArray(k string, v zapcore.ArrayMarshaler) error {
	return e.fields.AddArray(k, v)
}
func (e *nestedEncoder) AddObject(k string, v zapcore.ObjectMarshaler) error {
	return e.fields.AddObject(k, v)
}
func (e *nestedEncoder) AddBinary(k string, v []byte)          { e.fields.AddBinary(k, v) }
func (e *nestedEncoder) AddByteString(k string, v []byte)      { e.fields.AddByteString(k, v) }
func (e *nestedEncoder) AddBool(k string, v bool)              { e.fields.AddBool(k, v) }
func (e *nestedEncoder) AddComplex128(k string, v complex128)  { e.fields.AddComplex128(k, v) }
func (e *nestedEncoder) AddComplex64(k string, v complex64)    { e.fields.AddComplex64(k, v) }
func (e *nestedEncoder) AddDuration(k string, v time.Duration) { e.fields.AddDuration(k, v) }
func (e *nestedEncoder) AddFloat64(k string, v float64)        { e.fields.AddFloat64(k, v) }
func (e *nestedEncoder) AddFloat32(k string, v float32)        { e.fields.AddFloat32(k, v) }
func (e *nestedEncoder) AddInt(k string, v int)                { e.fields.AddInt(k, v) }
func (e *nestedEncoder) AddInt64(k string, v int64)            { e.fields.AddInt64(k, v) }
func (e *nestedEncoder) AddInt32(k string, v int32)             { e.fields.AddInt32(k, v) }
func (e *nestedEncoder) AddInt16(k string, v int16)             { e.fields.AddInt16(k, v) }
func (e *nestedEncoder) AddInt8(k string, v int8)               { e.fields.AddInt8(k, v) }
func (e *nestedEncoder) AddString(k, v string)                  { e.fields.AddString(k, v) }
func (e *nestedEncoder) AddTime(k string, v time.Time)          { e.fields.AddTime(k, v) }
func (e *nestedEncoder) AddUint(k string, v uint)               { e.fields.AddUint(k, v) }
func (e *nestedEncoder) AddUint64(k string, v uint64)           { e.fields.AddUint64(k, v) }
func (e *nestedEncoder) AddUint32(k string, v uint32)           { e.fields.AddUint32(k, v) }
func (e *nestedEncoder) AddUint16(k string, v uint16)           { e.fields.AddUint16(k, v) }
func (e *nestedEncoder) AddUint8(k string, v uint8)             { e.fields.AddUint8(k, v) }
func (e *nestedEncoder) AddUintptr(k string, v uintptr)         { e.fields.AddUintptr(k, v) }
func (e *nestedEncoder) AddReflected(k string, v interface{}) error {
	return e.fields.AddReflected(k, v)
}
func (e *nestedEncoder) OpenNamespace(k string) { e.fields.OpenNamespace(k) }

func (e *nestedEncoder) Clone() zapcore.Encoder { return e.clone() }
