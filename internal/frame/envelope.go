package frame

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mixedstack/tracer/internal/errorutil"
)

// Variant tags used on the wire. They predate this service and must stay
// stable: the capture clients on the other side of the runtime boundary
// produce and consume the same records.
const (
	TagNative = "CFrame"
	TagPython = "PyFrame"
)

var (
	// ErrInvalidFrameShape is returned when a record is not an object, is
	// missing a required field, or carries a field of the wrong type.
	ErrInvalidFrameShape = fmt.Errorf("%w: invalid frame shape", errorutil.ErrDataIntegrity)

	// ErrUnknownVariantTag is returned when a record carries a type tag
	// other than CFrame or PyFrame.
	ErrUnknownVariantTag = fmt.Errorf("%w: unknown frame variant tag", errorutil.ErrDataIntegrity)

	// ErrUnsupportedValueType is returned when a local variable value does
	// not fit the Value union.
	ErrUnsupportedValueType = fmt.Errorf("%w: unsupported local value type", errorutil.ErrDataIntegrity)
)

type (
	// Envelope carries one Frame across the serialization boundary. The wire
	// format is a flat record with a "type" discriminator. Malformed records
	// are rejected here so the merge core only ever sees well-typed frames.
	Envelope struct {
		Frame Frame
	}

	wireNative struct {
		Type            string `json:"type"`
		InstructionAddr string `json:"ip"`
		File            string `json:"file"`
		Func            string `json:"func"`
		Lineno          int64  `json:"lineno"`
	}

	wirePython struct {
		Type   string                 `json:"type"`
		File   string                 `json:"file"`
		Func   string                 `json:"func"`
		Lineno int64                  `json:"lineno"`
		Locals map[string]interface{} `json:"locals"`
	}

	// Pointer fields distinguish a missing field from a zero value.
	wireFrame struct {
		Type            *string                    `json:"type"`
		InstructionAddr *string                    `json:"ip"`
		File            *string                    `json:"file"`
		Func            *string                    `json:"func"`
		Lineno          *int64                     `json:"lineno"`
		Locals          map[string]json.RawMessage `json:"locals"`
	}
)

func (e Envelope) MarshalJSON() ([]byte, error) {
	switch f := e.Frame.(type) {
	case Native:
		return json.Marshal(wireNative{
			Type:            TagNative,
			InstructionAddr: f.InstructionAddr,
			File:            f.File,
			Func:            f.Function,
			Lineno:          f.Line,
		})
	case Python:
		locals := make(map[string]interface{}, len(f.Locals))
		for name, value := range f.Locals {
			encoded, err := encodeValue(value)
			if err != nil {
				return nil, fmt.Errorf("local %q: %w", name, err)
			}
			locals[name] = encoded
		}
		return json.Marshal(wirePython{
			Type:   TagPython,
			File:   f.File,
			Func:   f.Function,
			Lineno: f.Line,
			Locals: locals,
		})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownVariantTag, e.Frame)
	}
}

func (e *Envelope) UnmarshalJSON(b []byte) error {
	var w wireFrame
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFrameShape, err)
	}
	if w.Type == nil {
		return fmt.Errorf("%w: missing %q", ErrInvalidFrameShape, "type")
	}
	switch *w.Type {
	case TagNative:
		if w.InstructionAddr == nil || w.File == nil || w.Func == nil || w.Lineno == nil {
			return fmt.Errorf("%w: CFrame requires ip, file, func and lineno", ErrInvalidFrameShape)
		}
		e.Frame = Native{
			InstructionAddr: *w.InstructionAddr,
			File:            *w.File,
			Function:        *w.Func,
			Line:            *w.Lineno,
		}
	case TagPython:
		if w.File == nil || w.Func == nil || w.Lineno == nil {
			return fmt.Errorf("%w: PyFrame requires file, func and lineno", ErrInvalidFrameShape)
		}
		locals := make(map[string]Value, len(w.Locals))
		for name, raw := range w.Locals {
			value, err := decodeValue(raw)
			if err != nil {
				return fmt.Errorf("local %q: %w", name, err)
			}
			locals[name] = value
		}
		e.Frame = Python{
			File:     *w.File,
			Function: *w.Func,
			Line:     *w.Lineno,
			Locals:   locals,
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownVariantTag, *w.Type)
	}
	return nil
}

func encodeValue(v Value) (interface{}, error) {
	switch v := v.(type) {
	case String:
		return string(v), nil
	case Int:
		return int64(v), nil
	case Float:
		// json.Number serializes the stored text verbatim.
		return json.Number(v), nil
	case Bool:
		return bool(v), nil
	case None:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValueType, v)
	}
}

func decodeValue(raw json.RawMessage) (Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrInvalidFrameShape
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFrameShape, err)
		}
		return String(s), nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFrameShape, err)
		}
		return Bool(b), nil
	case 'n':
		if !bytes.Equal(raw, []byte("null")) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFrameShape, raw)
		}
		return None{}, nil
	case '[', '{':
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedValueType, raw)
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedValueType, raw)
		}
		text := n.String()
		if strings.ContainsAny(text, ".eE") {
			return Float(text), nil
		}
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			// Integer too wide for int64, keep the exact text instead.
			return Float(text), nil
		}
		return Int(i), nil
	}
}

// Envelopes wraps a frame sequence for serialization.
func Envelopes(frames []Frame) []Envelope {
	envelopes := make([]Envelope, 0, len(frames))
	for _, f := range frames {
		envelopes = append(envelopes, Envelope{Frame: f})
	}
	return envelopes
}

// Unwrap returns the frames carried by a sequence of envelopes.
func Unwrap(envelopes []Envelope) []Frame {
	frames := make([]Frame, 0, len(envelopes))
	for _, e := range envelopes {
		frames = append(frames, e.Frame)
	}
	return frames
}
