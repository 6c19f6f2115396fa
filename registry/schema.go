package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

const registrySchema = `
#Scope: "DOMAIN" | "WORKSPACE" | "PROJECT"
#Size:  "sm" | "md" | "lg" | "xl" | "full"

#BaseConfigInfo: {
	config_id: string & !=""
	version?:  string
}

#Property: {
	key?:              string
	name?:             string
	selection_type?:   "SINGLE" | "MULTI"
	inheritance_mode?: "NONE" | "KEY_MATCHING" | "SELECTION_TYPE_MATCHING"
	fixed?:            bool
}

#Config: {
	widget_config_id: string & =~"^[A-Za-z][A-Za-z0-9_]*$"
	base_configs?: [...#BaseConfigInfo]
	abstract?: bool
	title?:    string
	labels?: [...string]
	description?: {
		translation_id?: string
		preview_image?:  string
	}
	scopes?: [...#Scope]
	theme?: {
		inherit?:       bool
		inherit_count?: int & >=0
	}
	sizes?: [...#Size]
	options?: {...}
	options_schema?: {
		default_properties?: [...string]
		inheritable_properties?: [...string]
		properties?: [string]: #Property
		order?: [...string]
	}
}

#Module: string | {
	path:         string & !=""
	name?:        string
	description?: string
}

#File: {
	modules?: [...#Module]
	configs?: [...#Config]
}
`

var (
	schemaMu sync.RWMutex
	schemas  = make(map[string]string)
)

// RegisterSchema registers additional CUE constraints that every registry
// file must satisfy. The source may refine the #Config and #File definitions,
// for example to require a title on every config.
func RegisterSchema(name, src string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("schema name must not be empty")
	}
	if strings.TrimSpace(src) == "" {
		return errors.New("schema source must not be empty")
	}
	if _, err := compileSchema(map[string]string{name: src}); err != nil {
		return fmt.Errorf("schema %s: %w", name, err)
	}
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if _, exists := schemas[name]; exists {
		return fmt.Errorf("schema %s already registered", name)
	}
	schemas[name] = src
	return nil
}

// ResetSchemasForTest clears all registered schemas. This helper is intended for tests only.
func ResetSchemasForTest() {
	schemaMu.Lock()
	schemas = make(map[string]string)
	schemaMu.Unlock()
}

func registeredSchemas() map[string]string {
	schemaMu.RLock()
	defer schemaMu.RUnlock()
	out := make(map[string]string, len(schemas))
	for name, src := range schemas {
		out[name] = src
	}
	return out
}

func compileSchema(extra map[string]string) (cue.Value, error) {
	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(registrySchema)
	for _, name := range names {
		b.WriteString("\n// ")
		b.WriteString(name)
		b.WriteString("\n")
		b.WriteString(extra[name])
		b.WriteString("\n")
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(b.String(), cue.Filename("registry.cue"))
	if err := schema.Err(); err != nil {
		return cue.Value{}, errors.New(cueerrors.Details(err, nil))
	}
	return schema, nil
}

// validateDocument checks a decoded registry file against the schema.
func validateDocument(path string, doc interface{}) error {
	schema, err := compileSchema(registeredSchemas())
	if err != nil {
		return fmt.Errorf("compile registry schema: %w", err)
	}
	file := schema.LookupPath(cue.ParsePath("#File"))
	if err := file.Err(); err != nil {
		return fmt.Errorf("lookup registry schema: %w", err)
	}
	data := schema.Context().Encode(doc)
	if err := data.Err(); err != nil {
		return fmt.Errorf("%s: encode document: %w", path, err)
	}
	if err := file.Unify(data).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s: schema validation failed: %s", path, strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}
