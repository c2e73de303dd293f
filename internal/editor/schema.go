// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package editor

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/olegiv/corpsite/internal/docstore"
)

// Kind is the kind of a form field. It is one of Text, Textarea, Number,
// URL, Image or StringList.
type Kind interface {
	// Name is the kind's name in schema files and templates.
	Name() string
	kind()
}

// Text is a single-line string.
type Text struct{}

// Textarea is a multi-line string.
type Textarea struct{}

// Number is stored as a number, or as "" when left empty.
type Number struct{}

// URL is an absolute http(s) link.
type URL struct{}

// Image is a file uploaded to Folder on submit; the field stores its URL.
type Image struct {
	Folder string
}

// StringList is edited as comma-separated text and stored as a list.
type StringList struct{}

func (Text) Name() string       { return "text" }
func (Textarea) Name() string   { return "textarea" }
func (Number) Name() string     { return "number" }
func (URL) Name() string        { return "url" }
func (Image) Name() string      { return "image" }
func (StringList) Name() string { return "list" }

func (Text) kind()       {}
func (Textarea) kind()   {}
func (Number) kind()     {}
func (URL) kind()        {}
func (Image) kind()      {}
func (StringList) kind() {}

// Field describes one form field.
type Field struct {
	Name     string
	Label    string
	Kind     Kind
	Required bool
}

// Schema describes an admin-managed collection.
type Schema struct {
	Collection string
	Title      string
	Fields     []Field
	OrderBy    string
	Direction  docstore.Direction
	// Slug derives a unique "slug" from the title when a record is created.
	Slug bool
	// Publish sets publishedAt once when a record is created.
	Publish bool
}

// Field returns the field called name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// ImageFields returns the names of the image fields.
func (s Schema) ImageFields() []string {
	var names []string
	for _, f := range s.Fields {
		if _, ok := f.Kind.(Image); ok {
			names = append(names, f.Name)
		}
	}
	return names
}

//go:embed schemas.toml
var defaultSchemas []byte

type schemaFile struct {
	Collection []struct {
		Name      string `toml:"name"`
		Title     string `toml:"title"`
		Folder    string `toml:"folder"`
		OrderBy   string `toml:"order_by"`
		Direction string `toml:"direction"`
		Slug      bool   `toml:"slug"`
		Publish   bool   `toml:"publish"`
		Field     []struct {
			Name     string `toml:"name"`
			Label    string `toml:"label"`
			Kind     string `toml:"kind"`
			Required bool   `toml:"required"`
			Folder   string `toml:"folder"`
		} `toml:"field"`
	} `toml:"collection"`
}

// Registry holds the schemas of all managed collections in file order.
type Registry struct {
	schemas []Schema
	index   map[string]int
}

// DefaultRegistry returns the built-in schemas.
func DefaultRegistry() (*Registry, error) {
	return ParseSchemas(defaultSchemas)
}

// ParseSchemas decodes a TOML schema file. Collections are listed by
// creation time, newest first, unless order_by and direction say otherwise.
// Image folders default to the collection folder, which defaults to the
// collection name.
func ParseSchemas(data []byte) (*Registry, error) {
	var file schemaFile
	if _, err := toml.Decode(string(data), &file); err != nil {
		return nil, fmt.Errorf("decoding schemas: %w", err)
	}

	r := &Registry{index: make(map[string]int, len(file.Collection))}
	for _, c := range file.Collection {
		if c.Name == "" {
			return nil, fmt.Errorf("schema without collection name")
		}
		if _, dup := r.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate schema %q", c.Name)
		}
		folder := c.Folder
		if folder == "" {
			folder = c.Name
		}
		s := Schema{
			Collection: c.Name,
			Title:      c.Title,
			OrderBy:    c.OrderBy,
			Direction:  docstore.Descending,
			Slug:       c.Slug,
			Publish:    c.Publish,
		}
		if s.Title == "" {
			s.Title = c.Name
		}
		if s.OrderBy == "" {
			s.OrderBy = docstore.FieldCreatedAt
		}
		if c.Direction != "" {
			s.Direction = docstore.ParseDirection(c.Direction)
		}

		seen := make(map[string]bool, len(c.Field))
		for _, f := range c.Field {
			if f.Name == "" || seen[f.Name] {
				return nil, fmt.Errorf("schema %q: missing or duplicate field name %q", c.Name, f.Name)
			}
			seen[f.Name] = true
			kind, err := parseKind(f.Kind, f.Folder, folder)
			if err != nil {
				return nil, fmt.Errorf("schema %q field %q: %w", c.Name, f.Name, err)
			}
			label := f.Label
			if label == "" {
				label = f.Name
			}
			s.Fields = append(s.Fields, Field{Name: f.Name, Label: label, Kind: kind, Required: f.Required})
		}
		if len(s.Fields) == 0 {
			return nil, fmt.Errorf("schema %q has no fields", c.Name)
		}

		r.index[s.Collection] = len(r.schemas)
		r.schemas = append(r.schemas, s)
	}
	return r, nil
}

func parseKind(name, folder, defaultFolder string) (Kind, error) {
	switch strings.ToLower(name) {
	case "", "text":
		return Text{}, nil
	case "textarea":
		return Textarea{}, nil
	case "number":
		return Number{}, nil
	case "url":
		return URL{}, nil
	case "list":
		return StringList{}, nil
	case "image":
		if folder == "" {
			folder = defaultFolder
		}
		return Image{Folder: folder}, nil
	default:
		return nil, fmt.Errorf("unknown field kind %q", name)
	}
}

// Lookup returns the schema of collection.
func (r *Registry) Lookup(collection string) (Schema, bool) {
	i, ok := r.index[collection]
	if !ok {
		return Schema{}, false
	}
	return r.schemas[i], true
}

// All returns the schemas in file order.
func (r *Registry) All() []Schema {
	out := make([]Schema, len(r.schemas))
	copy(out, r.schemas)
	return out
}
