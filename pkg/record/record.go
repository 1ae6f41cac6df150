// Package record encodes the machine-readable request record.
//
// Records are serialised in RFC 8785 canonical form so the same captured
// request always produces byte-identical output and a stable digest.
package record

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gowebpki/jcs"
	"github.com/kaptinlin/jsonschema"
)

//go:embed schema/record.schema.json
var recordSchema []byte

// Canonicalize returns the canonical JSON form of raw JSON input.
func Canonicalize(input []byte) ([]byte, error) {
	return jcs.Transform(input)
}

// Digest returns the sha256 hex digest of the canonical form of input.
func Digest(input []byte) (string, error) {
	canonical, err := Canonicalize(input)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Encode marshals v and returns its canonical bytes.
func Encode(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	canonical, err := Canonicalize(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize record: %w", err)
	}
	return canonical, nil
}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		compiledSchema, schemaErr = compiler.Compile(recordSchema)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile record schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// Validate checks encoded record bytes against the embedded record schema.
func Validate(data []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}
	result := schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("record schema validation failed: %v", result.Errors)
}

// Schema returns the embedded JSON schema document.
func Schema() []byte {
	out := make([]byte, len(recordSchema))
	copy(out, recordSchema)
	return out
}
