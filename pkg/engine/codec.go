package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Codec turns a value into text and back. Decode must accept exactly what
// Encode produces and reject truncated or corrupted input, including a
// document that decodes to null.
type Codec interface {
	Name() string
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// JSONCodec stores values as indented JSON.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func (JSONCodec) Decode(data []byte, v any) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return errNullDocument
	}
	return json.Unmarshal(data, v)
}

var (
	errNullDocument = errors.New("document is null")
	errTruncated    = errors.New("document end marker missing")
)

// yamlEnd closes every encoded YAML document. A file that lost its tail
// also lost the marker.
var yamlEnd = []byte("\n...\n")

// YAMLCodec stores values as YAML documents terminated by an explicit
// document end marker.
type YAMLCodec struct{}

func (YAMLCodec) Name() string { return "yaml" }

func (YAMLCodec) Encode(v any) ([]byte, error) {
	out, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}
	if !bytes.HasSuffix(out, []byte("\n")) {
		out = append(out, '\n')
	}
	return append(out, yamlEnd[1:]...), nil
}

func (YAMLCodec) Decode(data []byte, v any) error {
	if !bytes.HasSuffix(data, yamlEnd) {
		return errTruncated
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if len(doc.Content) == 0 || doc.Content[0].ShortTag() == "!!null" {
		return errNullDocument
	}
	return doc.Decode(v)
}

// CodecByName resolves a configured codec name.
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return JSONCodec{}, nil
	case "yaml", "yml":
		return YAMLCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown codec %q", ErrInvalidConfig, name)
	}
}
