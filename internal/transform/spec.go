// Package transform applies a declarative rewrite specification to a
// dependency graph and propagates the resulting field renames to every
// structurally affected descendant.
package transform

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"cvmigrate/internal/domain"
)

// Spec is the ordered rewrite specification. Every section is optional; the
// apply order is fixed regardless of document order.
type Spec struct {
	DeleteNodes     []string         `yaml:"DELETE_NODES"`
	AddNodes        []AddNodeSpec    `yaml:"ADD_NODES"`
	AddJoins        []AddJoinSpec    `yaml:"ADD_JOINS"`
	RebuildNodes    []RebuildSpec    `yaml:"REBUILD_NODES"`
	UpdateNodes     []UpdateNodeSpec `yaml:"UPDATE_NODES"`
	InputParameters []ParameterSpec  `yaml:"INPUT_PARAMETERS"`
}

// AddNodeSpec inserts a new datasource leaf. FieldSources maps each declared
// field to the upstream field it replaces, written as "TABLE.FIELD"; a
// differing bare field name marks the node as a transformed source for
// rename propagation.
type AddNodeSpec struct {
	NodeID       string            `yaml:"node_id"`
	Type         string            `yaml:"type"`
	SchemaName   string            `yaml:"schema_name"`
	TableName    string            `yaml:"table_name"`
	FieldSources map[string]string `yaml:"field_sources"`
}

// AddJoinSpec synthesizes a binary join node over two existing nodes.
type AddJoinSpec struct {
	JoinID     string          `yaml:"join_id"`
	LeftNode   string          `yaml:"left_node"`
	RightNode  string          `yaml:"right_node"`
	Type       string          `yaml:"type"`
	Conditions []JoinCondition `yaml:"join_conditions"`
}

// JoinCondition is one equi-join condition, "LEFT.field = RIGHT.field".
type JoinCondition struct {
	FieldMapping string `yaml:"field_mapping"`
}

// RebuildSpec replaces a node (and its inbound wiring) with a freshly
// defined node over new inputs. InputMappings is keyed by source node id;
// the inner map is target field -> source field ("TABLE.FIELD" or bare).
type RebuildSpec struct {
	OriginalNode  string                       `yaml:"original_node"`
	NewNode       string                       `yaml:"new_node"`
	Type          string                       `yaml:"type"`
	InputMappings map[string]map[string]string `yaml:"input_mappings"`
}

// UpdateNodeSpec appends fields to an existing node.
type UpdateNodeSpec struct {
	NodeID    string   `yaml:"node_id"`
	AddFields []string `yaml:"add_fields"`
}

// ParameterSpec replaces one view-level variable.
type ParameterSpec struct {
	ID            string `yaml:"id"`
	IsParameter   bool   `yaml:"is_parameter"`
	Description   string `yaml:"description"`
	Datatype      string `yaml:"datatype"`
	Length        int    `yaml:"length"`
	Mandatory     bool   `yaml:"mandatory"`
	SelectionType string `yaml:"selection_type"`
}

var joinTypes = map[string]struct{}{
	"inner":       {},
	"leftOuter":   {},
	"rightOuter":  {},
	"fullOuter":   {},
	"referential": {},
	"text":        {},
}

// ParseSpec decodes a rewrite specification. Decoding is strict: an unknown
// key is an authoring mistake, not something to ignore.
func ParseSpec(r io.Reader) (*Spec, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Spec
	if err := dec.Decode(&s); err != nil {
		if err == io.EOF {
			return &Spec{}, nil
		}
		return nil, domain.ErrValidation("invalid rewrite spec: %v", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadSpec reads and parses a rewrite specification file.
func LoadSpec(path string) (*Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rewrite spec: %w", err)
	}
	defer f.Close()
	s, err := ParseSpec(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks every entry against the closed set of supported kinds, so
// dispatch later never falls back to runtime string comparison on unvetted
// input.
func (s *Spec) Validate() error {
	for _, a := range s.AddNodes {
		if a.NodeID == "" {
			return domain.ErrValidation("ADD_NODES entry missing node_id")
		}
		switch a.Type {
		case "", "datasource", "DATA_BASE_TABLE":
		default:
			return domain.ErrValidation("ADD_NODES %s: unsupported type %q", a.NodeID, a.Type)
		}
	}
	for _, j := range s.AddJoins {
		if j.JoinID == "" || j.LeftNode == "" || j.RightNode == "" {
			return domain.ErrValidation("ADD_JOINS entry %q missing join_id/left_node/right_node", j.JoinID)
		}
		if j.Type != "" {
			if _, ok := joinTypes[j.Type]; !ok {
				return domain.ErrValidation("ADD_JOINS %s: unsupported join type %q", j.JoinID, j.Type)
			}
		}
		for _, c := range j.Conditions {
			if !strings.Contains(c.FieldMapping, "=") {
				return domain.ErrValidation("ADD_JOINS %s: condition %q is not an equality", j.JoinID, c.FieldMapping)
			}
		}
	}
	for _, r := range s.RebuildNodes {
		if r.OriginalNode == "" || r.NewNode == "" {
			return domain.ErrValidation("REBUILD_NODES entry missing original_node/new_node")
		}
		if r.Type != "" && domain.ParseNodeKind(r.Type) == domain.KindOther {
			return domain.ErrValidation("REBUILD_NODES %s: unsupported node type %q", r.NewNode, r.Type)
		}
	}
	for _, u := range s.UpdateNodes {
		if u.NodeID == "" {
			return domain.ErrValidation("UPDATE_NODES entry missing node_id")
		}
	}
	return nil
}

// IsEmpty reports whether the spec contains no instructions at all.
func (s *Spec) IsEmpty() bool {
	return len(s.DeleteNodes) == 0 && len(s.AddNodes) == 0 && len(s.AddJoins) == 0 &&
		len(s.RebuildNodes) == 0 && len(s.UpdateNodes) == 0 && len(s.InputParameters) == 0
}
