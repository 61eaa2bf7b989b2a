// Package normalize reshapes upstream sync-service payloads into the
// envelope the dashboard serves: {data: {jobs|agents: [...]}, method, path, status}.
//
// Upstream bodies are decoded into one of a closed set of shapes. Bodies that
// match none of them are rejected with ErrUnrecognizedShape instead of being
// coerced.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

var ErrUnrecognizedShape = errors.New("unrecognized upstream payload shape")

type Shape int

const (
	// ShapeArray is a bare JSON array of records.
	ShapeArray Shape = iota + 1
	// ShapeEnvelope is an object carrying the record list under a known key.
	ShapeEnvelope
	// ShapeRecord is a single JSON object.
	ShapeRecord
)

func (s Shape) String() string {
	switch s {
	case ShapeArray:
		return "array"
	case ShapeEnvelope:
		return "envelope"
	case ShapeRecord:
		return "record"
	}
	return "unknown"
}

// Payload is a decoded upstream body.
type Payload struct {
	Shape Shape
	// Items holds the records for ShapeArray and ShapeEnvelope.
	Items []map[string]any
	// Object holds the top-level object for ShapeEnvelope and ShapeRecord.
	Object map[string]any
}

// Decode classifies body. listKey names the list field of an envelope
// ("jobs", "agents"); when empty only ShapeRecord objects are accepted.
func Decode(body []byte, listKey string) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Payload{}, fmt.Errorf("decode upstream payload: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Payload{}, fmt.Errorf("%w: trailing data after JSON value", ErrUnrecognizedShape)
	}

	switch value := raw.(type) {
	case []any:
		if listKey == "" {
			return Payload{}, fmt.Errorf("%w: expected object, got array", ErrUnrecognizedShape)
		}
		items, err := records(value)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Shape: ShapeArray, Items: items}, nil
	case map[string]any:
		if listKey == "" {
			return Payload{Shape: ShapeRecord, Object: value}, nil
		}
		list, ok := value[listKey].([]any)
		if !ok {
			return Payload{}, fmt.Errorf("%w: object without %q array", ErrUnrecognizedShape, listKey)
		}
		items, err := records(list)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Shape: ShapeEnvelope, Items: items, Object: value}, nil
	default:
		return Payload{}, fmt.Errorf("%w: %T", ErrUnrecognizedShape, raw)
	}
}

func records(list []any) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(list))
	for i, item := range list {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %T, not an object", ErrUnrecognizedShape, i, item)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Envelope is the canonical response body. It stays a map so that fields
// the dashboard does not know about pass through untouched.
type Envelope map[string]any

// Jobs normalizes a job list payload.
func Jobs(body []byte, now time.Time) (Envelope, error) {
	return list(body, "jobs", now, convertJob)
}

// Agents normalizes an agent list payload.
func Agents(body []byte, now time.Time) (Envelope, error) {
	return list(body, "agents", now, convertAgent)
}

func list(body []byte, key string, now time.Time, convert func(map[string]any, time.Time) map[string]any) (Envelope, error) {
	payload, err := Decode(body, key)
	if err != nil {
		return nil, err
	}

	processed := make([]any, 0, len(payload.Items))
	for _, item := range payload.Items {
		processed = append(processed, convert(item, now))
	}

	switch payload.Shape {
	case ShapeArray:
		return Envelope{"data": map[string]any{key: processed}}, nil
	case ShapeEnvelope:
		out := make(Envelope, len(payload.Object)+1)
		for k, v := range payload.Object {
			out[k] = v
		}
		data := map[string]any{}
		if nested, ok := payload.Object["data"].(map[string]any); ok {
			for k, v := range nested {
				data[k] = v
			}
		}
		data[key] = processed
		out["data"] = data
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnrecognizedShape, payload.Shape)
}

// Job normalizes a single-job payload: either the job object itself or an
// object wrapping it under "job" (optionally inside "data").
func Job(body []byte, now time.Time) (map[string]any, error) {
	payload, err := Decode(body, "")
	if err != nil {
		return nil, err
	}

	obj := payload.Object
	if data, ok := obj["data"].(map[string]any); ok {
		obj = data
	}
	if wrapped, ok := obj["job"].(map[string]any); ok {
		obj = wrapped
	}
	if _, ok := obj["id"]; !ok {
		return nil, fmt.Errorf("%w: job object without id", ErrUnrecognizedShape)
	}
	return convertJob(obj, now), nil
}

// Info normalizes the system-info record.
func Info(body []byte, now time.Time) (map[string]any, error) {
	payload, err := Decode(body, "")
	if err != nil {
		return nil, err
	}
	return convertInfo(payload.Object, now), nil
}
