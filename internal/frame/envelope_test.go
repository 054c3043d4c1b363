package frame

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"

	"github.com/mixedstack/tracer/internal/errorutil"
	"github.com/mixedstack/tracer/internal/testutil"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		f    Frame
	}{
		{
			name: "native frame",
			f: Native{
				InstructionAddr: "0x7f2a4c01b23d",
				File:            "ceval.c",
				Function:        "_PyEval_EvalFrameDefault",
				Line:            1741,
			},
		},
		{
			name: "python frame without locals",
			f: Python{
				File:     "app.py",
				Function: "handle_request",
				Line:     58,
				Locals:   map[string]Value{},
			},
		},
		{
			name: "python frame with every value kind",
			f: Python{
				File:     "worker.py",
				Function: "process",
				Line:     12,
				Locals: map[string]Value{
					"name":    String("batch-7"),
					"retries": Int(3),
					"ratio":   Float("0.125"),
					"done":    Bool(false),
					"result":  None{},
				},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b, err := json.Marshal(Envelope{Frame: test.f})
			if err != nil {
				t.Fatal(err)
			}
			var decoded Envelope
			if err := json.Unmarshal(b, &decoded); err != nil {
				t.Fatal(err)
			}
			if diff := testutil.Diff(test.f, decoded.Frame); diff != "" {
				t.Fatalf("Result mismatch: got - want +\n%s", diff)
			}
		})
	}
}

func TestEnvelopeWireShape(t *testing.T) {
	b, err := json.Marshal(Envelope{Frame: Native{
		InstructionAddr: "0x12345678",
		File:            "test.c",
		Function:        "main",
		Line:            42,
	}})
	if err != nil {
		t.Fatal(err)
	}

	var record map[string]interface{}
	if err := jsoniter.Unmarshal(b, &record); err != nil {
		t.Fatal(err)
	}
	want := map[string]interface{}{
		"type":   "CFrame",
		"ip":     "0x12345678",
		"file":   "test.c",
		"func":   "main",
		"lineno": float64(42),
	}
	if diff := testutil.Diff(want, record); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func TestFloatKeepsExactText(t *testing.T) {
	f := Python{
		File:     "compute.py",
		Function: "scale",
		Line:     3,
		Locals: map[string]Value{
			"epsilon": Float("2.5e-3"),
		},
	}

	b, err := json.Marshal(Envelope{Frame: f})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"epsilon":2.5e-3`) {
		t.Fatalf("float text was not preserved: %s", b)
	}

	var decoded Envelope
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}
	pf, ok := decoded.Frame.(Python)
	if !ok {
		t.Fatalf("expected a python frame, got %T", decoded.Frame)
	}
	if got := pf.Locals["epsilon"]; got != Float("2.5e-3") {
		t.Fatalf("expected Float(\"2.5e-3\"), got %#v", got)
	}
}

func TestLocalsNumberDecoding(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  Value
	}{
		{"integer", `42`, Int(42)},
		{"negative integer", `-7`, Int(-7)},
		{"decimal point makes a float", `42.0`, Float("42.0")},
		{"exponent makes a float", `1e3`, Float("1e3")},
		{"integer wider than int64 keeps its text", `99999999999999999999`, Float("99999999999999999999")},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			data := `{"type":"PyFrame","file":"a.py","func":"f","lineno":1,"locals":{"x":` + test.value + `}}`
			var decoded Envelope
			if err := json.Unmarshal([]byte(data), &decoded); err != nil {
				t.Fatal(err)
			}
			got := decoded.Frame.(Python).Locals["x"]
			if got != test.want {
				t.Fatalf("expected %#v, got %#v", test.want, got)
			}
		})
	}
}

func TestEnvelopeDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{
			name: "unknown variant tag",
			data: `{"type":"JavaFrame","file":"A.java","func":"main","lineno":1}`,
			want: ErrUnknownVariantTag,
		},
		{
			name: "missing tag",
			data: `{"file":"a.py","func":"f","lineno":1}`,
			want: ErrInvalidFrameShape,
		},
		{
			name: "native frame missing the instruction pointer",
			data: `{"type":"CFrame","file":"a.c","func":"f","lineno":1}`,
			want: ErrInvalidFrameShape,
		},
		{
			name: "python frame missing the line number",
			data: `{"type":"PyFrame","file":"a.py","func":"f"}`,
			want: ErrInvalidFrameShape,
		},
		{
			name: "mistyped line number",
			data: `{"type":"CFrame","ip":"0x0","file":"a.c","func":"f","lineno":"one"}`,
			want: ErrInvalidFrameShape,
		},
		{
			name: "record is not an object",
			data: `["CFrame"]`,
			want: ErrInvalidFrameShape,
		},
		{
			name: "local value is an array",
			data: `{"type":"PyFrame","file":"a.py","func":"f","lineno":1,"locals":{"xs":[1,2]}}`,
			want: ErrUnsupportedValueType,
		},
		{
			name: "local value is an object",
			data: `{"type":"PyFrame","file":"a.py","func":"f","lineno":1,"locals":{"o":{"k":1}}}`,
			want: ErrUnsupportedValueType,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var decoded Envelope
			err := json.Unmarshal([]byte(test.data), &decoded)
			if !errors.Is(err, test.want) {
				t.Fatalf("expected %v, got %v", test.want, err)
			}
			if !errors.Is(err, errorutil.ErrDataIntegrity) {
				t.Fatalf("expected a data integrity error, got %v", err)
			}
		})
	}
}

func TestEnvelopesUnwrap(t *testing.T) {
	frames := []Frame{
		Native{InstructionAddr: "0x1", Function: "A"},
		Python{Function: "py1", Locals: map[string]Value{}},
	}
	if diff := testutil.Diff(frames, Unwrap(Envelopes(frames))); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}
