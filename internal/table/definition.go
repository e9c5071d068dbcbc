package table

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"sigs.k8s.io/yaml"

	terr "github.com/kong/ctable/internal/err"
	"github.com/kong/ctable/internal/util"
)

// Spec is the file form of a Definition.
//
//	name: services
//	fields: [name, {name: Host, header_style: col-4}, description]
//	markdown: [description]
//	children: routes
//	child:
//	  fields: [path, methods]
type Spec struct {
	Name              string   `json:"name,omitempty" yaml:"name,omitempty"`
	Fields            []Field  `json:"fields,omitempty" yaml:"fields,omitempty"`
	TableStyle        string   `json:"table_style,omitempty" yaml:"table_style,omitempty"`
	ExpandHeaderStyle string   `json:"expand_header_style,omitempty" yaml:"expand_header_style,omitempty"`
	Children          string   `json:"children,omitempty" yaml:"children,omitempty"`
	Markdown          []string `json:"markdown,omitempty" yaml:"markdown,omitempty"`
	Child             *Spec    `json:"child,omitempty" yaml:"child,omitempty"`
}

func defaultSpec() Spec {
	return Spec{
		TableStyle:        DefaultTableStyle,
		ExpandHeaderStyle: DefaultExpandHeaderStyle,
	}
}

// LoadSpec reads a table definition file.
func LoadSpec(path string) (*Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table definition: %w", err)
	}
	spec, err := ParseSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("table definition %s: %w", path, err)
	}
	return spec, nil
}

// ParseSpec decodes a YAML or JSON table definition, fills in defaults and
// validates it.
func ParseSpec(raw []byte) (*Spec, error) {
	var spec Spec
	if err := yaml.UnmarshalStrict(raw, &spec); err != nil {
		return nil, &terr.ConfigurationError{Err: fmt.Errorf("decode table definition: %w", err)}
	}
	if err := spec.Complete(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Complete fills in defaults and validates a definition built in code or
// from flags.
func (s *Spec) Complete() error {
	if err := s.applyDefaults(); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return &terr.ConfigurationError{Err: err}
	}
	return nil
}

func (s *Spec) applyDefaults() error {
	// fields: [] must survive the omitempty round trip
	fields, child := s.Fields, s.Child
	s.Child = nil
	if err := util.ApplyDefaults(s, defaultSpec()); err != nil {
		return fmt.Errorf("apply table definition defaults: %w", err)
	}
	s.Fields, s.Child = fields, child
	if s.Child != nil {
		return s.Child.applyDefaults()
	}
	return nil
}

// Validate reports every problem of the definition at once.
func (s *Spec) Validate() error {
	bucket := &terr.ErrorsBucket{Msg: "invalid table definition"}
	s.validate("", bucket)
	return bucket.ErrorOrNil()
}

func (s *Spec) validate(path string, bucket *terr.ErrorsBucket) {
	seen := map[string]bool{}
	derived := s.Fields == nil
	for i, f := range s.Fields {
		name := strings.TrimSpace(f.Name)
		switch {
		case name == "":
			bucket.Add(fmt.Errorf("%sfield %d has no name", path, i))
		case name == AllFields:
			derived = true
		case seen[strings.ToLower(name)]:
			bucket.Add(fmt.Errorf("%sfield %q is declared twice", path, name))
		}
		seen[strings.ToLower(name)] = true
	}
	if !derived {
		for _, m := range s.Markdown {
			if !seen[strings.ToLower(m)] {
				bucket.Add(fmt.Errorf("%smarkdown field %q is not a declared field", path, m))
			}
		}
	}
	if s.Child != nil {
		if s.Children == "" {
			bucket.Add(fmt.Errorf("%schild definition given without a children field", path))
		}
		s.Child.validate(path+"child: ", bucket)
	}
}

// Definition builds the runtime definition. Fields listed under markdown are
// rendered with Markdown; children resolves nested tables from the named
// field, rendered with child or, when absent, with the same definition.
func (s *Spec) Definition() *Definition {
	return s.DefinitionWith(Markdown)
}

// DefinitionWith is Definition with markdown fields rendered by the renderer
// md returns.
func (s *Spec) DefinitionWith(md func(field string) RenderFunc) *Definition {
	if md == nil {
		md = Markdown
	}
	def := &Definition{
		Name:              s.Name,
		Fields:            slices.Clone(s.Fields),
		TableStyle:        s.TableStyle,
		ExpandHeaderStyle: s.ExpandHeaderStyle,
	}
	for _, m := range s.Markdown {
		def.Render(m, md(m))
	}
	if s.Children != "" {
		def.Children = ChildrenField(s.Children)
	}
	if s.Child != nil {
		def.Child = s.Child.DefinitionWith(md)
	}
	return def
}
