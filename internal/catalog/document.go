// Package catalog reads, synthesizes, names and indexes catalog metadata
// records.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Catalog keys
const (
	KeyAuthor         = "Author"
	KeyPaperID        = "Paper_id"
	KeyDescription    = "Description"
	KeyHomepage       = "Model Homepage"
	KeyExistingDOI    = "Existing Model Doi"
	KeyModelDOI       = "Model Doi"
	KeyModelName      = "Model name"
	KeyModelVersion   = "Model Version"
	KeyPythonVersion  = "Model Python Version"
	KeyNLO            = "Allows NLO calculations"
	KeyAllParticles   = "All Particles"
	KeySMParticles    = "SM particles"
	KeyBSMParticles   = "BSM particles with standard PDG codes"
	KeyPDGLike        = "Particles with PDG-like IDs"
	KeyParameters     = "Number of parameters"
	KeyVertices       = "Number of vertices"
	KeyCouplingOrders = "Number of coupling orders"
	KeyCouplings      = "Number of coupling tensors"
	KeyLorentz        = "Number of lorentz tensors"
	KeyPropagators    = "Number of propagators"
	KeyDecays         = "Number of decays"
)

// Author is one entry of the Author list
type Author struct {
	Name        string `json:"name"`
	Contact     string `json:"contact,omitempty"`
	Affiliation string `json:"affiliation,omitempty"`
}

// PaperID names the paper a model was published with
type PaperID struct {
	DOI   string `json:"doi,omitempty"`
	ArXiv string `json:"arXiv,omitempty"`
}

// Document is a catalog metadata record. Keys keep the order they were read
// or first set in, and keys this package knows nothing about survive every
// read/modify/write cycle untouched.
type Document struct {
	keys   []string
	fields map[string]json.RawMessage
}

// NewDocument creates an empty document
func NewDocument() *Document {
	return &Document{fields: make(map[string]json.RawMessage)}
}

// ParseDocument decodes a JSON object. A repeated key keeps its first
// position and its last value.
func ParseDocument(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("invalid JSON: expected an object")
	}

	doc := NewDocument()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("invalid JSON at %q: %w", key, err)
		}
		doc.setRaw(key, raw)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("invalid JSON: trailing data after object")
	}
	return doc, nil
}

// Keys returns the document's keys in order
func (d *Document) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Has reports whether key is present
func (d *Document) Has(key string) bool {
	_, ok := d.fields[key]
	return ok
}

// Raw returns the encoded value of key
func (d *Document) Raw(key string) (json.RawMessage, bool) {
	raw, ok := d.fields[key]
	return raw, ok
}

// Get decodes the value of key into v. It reports false when key is absent.
func (d *Document) Get(key string, v interface{}) (bool, error) {
	raw, ok := d.fields[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, err
	}
	return true, nil
}

// String returns a string field, or "" when absent or not a string
func (d *Document) String(key string) string {
	var s string
	if ok, err := d.Get(key, &s); !ok || err != nil {
		return ""
	}
	return s
}

// Set encodes v under key, appending key when it is new
func (d *Document) Set(key string, v interface{}) error {
	raw, err := marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	d.setRaw(key, raw)
	return nil
}

// SetDefault sets key only when it is absent
func (d *Document) SetDefault(key string, v interface{}) error {
	if d.Has(key) {
		return nil
	}
	return d.Set(key, v)
}

// Delete removes key
func (d *Document) Delete(key string) {
	if _, ok := d.fields[key]; !ok {
		return
	}
	delete(d.fields, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			return
		}
	}
}

func (d *Document) setRaw(key string, raw json.RawMessage) {
	if _, ok := d.fields[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.fields[key] = raw
}

// Clone returns an independent copy
func (d *Document) Clone() *Document {
	out := NewDocument()
	for _, key := range d.keys {
		raw := make(json.RawMessage, len(d.fields[key]))
		copy(raw, d.fields[key])
		out.setRaw(key, raw)
	}
	return out
}

// Authors decodes the Author list
func (d *Document) Authors() ([]Author, error) {
	var authors []Author
	_, err := d.Get(KeyAuthor, &authors)
	return authors, err
}

// Paper decodes Paper_id
func (d *Document) Paper() (PaperID, error) {
	var paper PaperID
	_, err := d.Get(KeyPaperID, &paper)
	return paper, err
}

// PaperIDs returns every string value of Paper_id in key order
func (d *Document) PaperIDs() []string {
	raw, ok := d.fields[KeyPaperID]
	if !ok {
		return nil
	}
	inner, err := ParseDocument(raw)
	if err != nil {
		return nil
	}
	var ids []string
	for _, key := range inner.keys {
		if s := inner.String(key); s != "" {
			ids = append(ids, s)
		}
	}
	return ids
}

// MarshalJSON encodes the fields in order
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(d.fields[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON replaces the document with the decoded object
func (d *Document) UnmarshalJSON(data []byte) error {
	parsed, err := ParseDocument(data)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// Encode writes the document as indented JSON without HTML escaping
func (d *Document) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// Bytes returns the encoded document
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshal(v interface{}) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return json.RawMessage(strings.TrimSuffix(buf.String(), "\n")), nil
}
