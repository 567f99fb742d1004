// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/url"
)

// Value is one raw, untyped field as it arrived at the boundary.
// A JSON null is indistinguishable from an absent key.
type Value struct {
	raw      any
	present  bool
	supplied bool
}

// Present builds a Value holding v. A nil v is treated as absent.
func Present(v any) Value {
	return Value{raw: v, present: v != nil, supplied: true}
}

// Absent is the zero Value.
func Absent() Value {
	return Value{}
}

// IsPresent reports whether the value carries a non-null payload.
func (v Value) IsPresent() bool {
	return v.present
}

// Supplied reports whether the key appeared in the payload at all, even as null.
func (v Value) Supplied() bool {
	return v.supplied
}

// Raw returns the underlying decoded value.
func (v Value) Raw() any {
	return v.raw
}

// Payload is a decoded request body or query string before any validation.
type Payload map[string]any

// Get returns the raw value for key.
func (p Payload) Get(key Field) Value {
	raw, ok := p[string(key)]
	if !ok {
		return Absent()
	}
	return Value{raw: raw, present: raw != nil, supplied: true}
}

// Has reports whether key is present in the payload, null or not.
func (p Payload) Has(key Field) bool {
	_, ok := p[string(key)]
	return ok
}

// DecodePayload decodes a JSON object. Numbers are kept as json.Number so the
// decimal and integer validators see the literal text. Any decode problem is
// reported as a MalformedPayload failure; an empty body decodes to an empty payload.
func DecodePayload(r io.Reader) (Payload, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, MalformedPayload(err.Error())
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return Payload{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var p Payload
	if err := dec.Decode(&p); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, MalformedPayload("expected a JSON object")
		}
		return nil, MalformedPayload(err.Error())
	}
	if dec.More() {
		return nil, MalformedPayload("unexpected data after JSON object")
	}
	if p == nil {
		return Payload{}, nil
	}
	return p, nil
}

// PayloadFromQuery turns query parameters into a payload, keeping the first
// value for each key.
func PayloadFromQuery(q url.Values) Payload {
	p := make(Payload, len(q))
	for k, vs := range q {
		if len(vs) == 0 {
			continue
		}
		p[k] = vs[0]
	}
	return p
}
