// Package validation checks custom-field documents against JSON Schema
// (draft-07) structures and reports every violation, not just the first.
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/pathquery"
	"github.com/peoplebase/peoplebase-backend/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const resourceURL = "mem://customfield/structure.json"

// RootPath names the document root in violations.
const RootPath = "root"

// Engine compiles structures and validates documents against them.
type Engine struct{}

// NewEngine creates a validation engine
func NewEngine() *Engine {
	return &Engine{}
}

// Compiled is a structure ready to validate documents.
type Compiled struct {
	structure domain.Document
	schema    *jsonschema.Schema
}

// CheckStructure rejects structures that are not a usable schema shell:
// a missing or non-object "properties", or anything the compiler refuses.
func (e *Engine) CheckStructure(structure domain.Document) error {
	_, err := e.Compile(structure)
	return err
}

// Compile validates the shell of structure and compiles it.
func (e *Engine) Compile(structure domain.Document) (*Compiled, error) {
	if structure == nil {
		return nil, errors.MalformedSchema("structure is required")
	}
	props, ok := structure["properties"]
	if !ok {
		return nil, errors.MalformedSchema("structure must contain a \"properties\" key")
	}
	if _, ok := props.(map[string]any); !ok {
		return nil, errors.MalformedSchema("\"properties\" must be an object")
	}

	raw, err := json.Marshal(map[string]any(structure))
	if err != nil {
		return nil, errors.MalformedSchema(err.Error())
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource(resourceURL, bytes.NewReader(raw)); err != nil {
		return nil, errors.MalformedSchema(err.Error())
	}
	sch, err := c.Compile(resourceURL)
	if err != nil {
		return nil, errors.MalformedSchema(err.Error())
	}

	return &Compiled{structure: structure, schema: sch}, nil
}

// Validate returns the violations of document against structure, ordered by
// document path and then schema path. An empty result means valid.
func (e *Engine) Validate(structure domain.Document, document any) ([]errors.FieldViolation, error) {
	compiled, err := e.Compile(structure)
	if err != nil {
		return nil, err
	}
	return compiled.Validate(document)
}

// ValidateOrFail returns a SchemaValidation error carrying every violation.
func (e *Engine) ValidateOrFail(structure domain.Document, document any) error {
	compiled, err := e.Compile(structure)
	if err != nil {
		return err
	}
	return compiled.ValidateOrFail(document)
}

// ValidateOrFail returns a SchemaValidation error carrying every violation.
func (c *Compiled) ValidateOrFail(document any) error {
	violations, err := c.Validate(document)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		return errors.SchemaValidation(violations)
	}
	return nil
}

// Validate returns the ordered violations of document.
func (c *Compiled) Validate(document any) ([]errors.FieldViolation, error) {
	instance, err := normalize(document)
	if err != nil {
		return nil, errors.BadRequest("document is not valid JSON: " + err.Error())
	}

	err = c.schema.Validate(instance)
	if err == nil {
		return nil, nil
	}
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return nil, fmt.Errorf("validate document: %w", err)
	}

	var leaves []*jsonschema.ValidationError
	collectLeaves(verr, &leaves)
	sort.SliceStable(leaves, func(i, j int) bool {
		if leaves[i].InstanceLocation != leaves[j].InstanceLocation {
			return pointerLess(leaves[i].InstanceLocation, leaves[j].InstanceLocation)
		}
		return pointerLess(leaves[i].KeywordLocation, leaves[j].KeywordLocation)
	})

	violations := make([]errors.FieldViolation, 0, len(leaves))
	for _, leaf := range leaves {
		violations = append(violations, c.toViolations(leaf, instance)...)
	}
	return violations, nil
}

// normalize round-trips the document through JSON so every number is a
// json.Number and every object a map[string]any, which the validator expects.
func normalize(document any) (any, error) {
	if d, ok := document.(domain.Document); ok {
		document = map[string]any(d)
	}
	raw, err := json.Marshal(document)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// pointerLess orders JSON pointers segment by segment, comparing array
// indices numerically so /tags/2 comes before /tags/10.
func pointerLess(a, b string) bool {
	as := strings.Split(a, "/")
	bs := strings.Split(b, "/")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] == bs[i] {
			continue
		}
		ai, aerr := strconv.Atoi(as[i])
		bi, berr := strconv.Atoi(bs[i])
		if aerr == nil && berr == nil {
			return ai < bi
		}
		return as[i] < bs[i]
	}
	return len(as) < len(bs)
}

func collectLeaves(e *jsonschema.ValidationError, out *[]*jsonschema.ValidationError) {
	if len(e.Causes) == 0 {
		*out = append(*out, e)
		return
	}
	for _, cause := range e.Causes {
		collectLeaves(cause, out)
	}
}

// toViolations converts one leaf error. A "required" failure naming several
// properties becomes one violation per missing property.
func (c *Compiled) toViolations(leaf *jsonschema.ValidationError, instance any) []errors.FieldViolation {
	path := pointerToPath(leaf.InstanceLocation)
	schemaPath := pointerToDotted(leaf.KeywordLocation)

	if strings.HasSuffix(leaf.KeywordLocation, "/required") {
		if missing := c.missingRequired(leaf, instance); len(missing) > 0 {
			out := make([]errors.FieldViolation, 0, len(missing))
			for _, name := range missing {
				out = append(out, errors.FieldViolation{
					Path:       path,
					Message:    fmt.Sprintf("'%s' is a required property", name),
					SchemaPath: schemaPath,
				})
			}
			return out
		}
	}

	return []errors.FieldViolation{{Path: path, Message: leaf.Message, SchemaPath: schemaPath}}
}

func (c *Compiled) missingRequired(leaf *jsonschema.ValidationError, instance any) []string {
	keywordParent := strings.TrimSuffix(leaf.KeywordLocation, "/required")
	node, ok := pathquery.Resolve(map[string]any(c.structure), pointerToDotted(keywordParent))
	if !ok {
		return nil
	}
	schemaObj, ok := node.(map[string]any)
	if !ok {
		if d, isDoc := node.(domain.Document); isDoc {
			schemaObj = d
		} else {
			return nil
		}
	}
	required, ok := schemaObj["required"].([]any)
	if !ok {
		return nil
	}

	target, ok := pathquery.Resolve(instance, pointerToDotted(leaf.InstanceLocation))
	if !ok {
		return nil
	}
	obj, ok := target.(map[string]any)
	if !ok {
		return nil
	}

	var missing []string
	for _, r := range required {
		name, ok := r.(string)
		if !ok {
			continue
		}
		if _, present := obj[name]; !present {
			missing = append(missing, name)
		}
	}
	return missing
}

// pointerToPath converts a JSON pointer to a dotted path, "root" for "".
func pointerToPath(pointer string) string {
	dotted := pointerToDotted(pointer)
	if dotted == "" {
		return RootPath
	}
	return dotted
}

func pointerToDotted(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return ""
	}
	segments := strings.Split(pointer, "/")
	for i, s := range segments {
		s = strings.ReplaceAll(s, "~1", "/")
		segments[i] = strings.ReplaceAll(s, "~0", "~")
	}
	return strings.Join(segments, ".")
}
