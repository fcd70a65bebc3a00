package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

var (
	// ErrMalformedDocument means the input is not well-formed JSON.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrSchemaMismatch means the input is JSON but a required field is
	// missing or of the wrong kind.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

type fieldSpec struct {
	name   string
	kind   gjson.Type
	assign func(r *Record, v gjson.Result) error
}

// schema lists every required field of a metadata document. Keys match
// exactly; other keys, including case variants, are ignored.
var schema = []fieldSpec{
	{"fps", gjson.Number, func(r *Record, v gjson.Result) error {
		n, err := unsigned(v, "fps", 32)
		r.FrameRate = uint32(n)
		return err
	}},
	{"format", gjson.String, func(r *Record, v gjson.Result) error {
		r.Format = v.String()
		return nil
	}},
	{"res_y", gjson.Number, func(r *Record, v gjson.Result) error {
		n, err := unsigned(v, "res_y", 32)
		r.ResolutionHeight = uint32(n)
		return err
	}},
	{"res_x", gjson.Number, func(r *Record, v gjson.Result) error {
		n, err := unsigned(v, "res_x", 32)
		r.ResolutionWidth = uint32(n)
		return err
	}},
	{"capture_start", gjson.Number, func(r *Record, v gjson.Result) error {
		n, err := unsigned(v, "capture_start", 64)
		r.CaptureStart = n
		return err
	}},
	{"logger_id", gjson.String, func(r *Record, v gjson.Result) error {
		r.LoggerID = v.String()
		return nil
	}},
	{"device_id", gjson.String, func(r *Record, v gjson.Result) error {
		r.DeviceID = v.String()
		return nil
	}},
	{"tick", gjson.Number, func(r *Record, v gjson.Result) error {
		n, err := unsigned(v, "tick", 64)
		r.Tick = n
		return err
	}},
}

// Decode parses one metadata document. Only structure and primitive kinds are
// checked; values are taken as given.
func Decode(data []byte) (Record, error) {
	if !gjson.ValidBytes(data) {
		return Record{}, fmt.Errorf("%w: not valid JSON", ErrMalformedDocument)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return Record{}, fmt.Errorf("%w: document is not an object", ErrSchemaMismatch)
	}

	var r Record
	for _, f := range schema {
		v := doc.Get(f.name)
		if !v.Exists() {
			return Record{}, fmt.Errorf("%w: missing field %q", ErrSchemaMismatch, f.name)
		}
		if v.Type != f.kind {
			return Record{}, fmt.Errorf("%w: field %q must be a %s, got %s", ErrSchemaMismatch, f.name, kindName(f.kind), kindName(v.Type))
		}
		if err := f.assign(&r, v); err != nil {
			return Record{}, err
		}
	}
	return r, nil
}

// unsigned parses the raw number text of v. Negative, fractional, exponent
// and out of range values are rejected.
func unsigned(v gjson.Result, name string, bits int) (uint64, error) {
	n, err := strconv.ParseUint(v.Raw, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: field %q: value %s does not fit uint%d", ErrSchemaMismatch, name, v.Raw, bits)
	}
	return n, nil
}

// Encode renders r as a compact JSON document with a fixed field order.
func Encode(r Record) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return data, nil
}

func kindName(t gjson.Type) string {
	switch t {
	case gjson.Number:
		return "number"
	case gjson.String:
		return "string"
	case gjson.True, gjson.False:
		return "boolean"
	case gjson.Null:
		return "null"
	case gjson.JSON:
		return "object or array"
	default:
		return t.String()
	}
}
