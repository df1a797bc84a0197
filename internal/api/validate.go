package api

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBase = "https://ecolab.local/schemas/"

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

var requestSchemas = mustCompileSchemas(
	"binder_test",
	"data_file",
	"manual_metric",
	"metric_position",
	"peer_comment",
	"peer_review_decision",
)

func compileSchemas(names ...string) (map[string]*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	for _, name := range names {
		f, err := schemaFS.Open("schemas/" + name + ".json")
		if err != nil {
			return nil, fmt.Errorf("open schema %s: %w", name, err)
		}
		err = compiler.AddResource(schemaBase+name+".json", f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("add schema resource %s: %w", name, err)
		}
	}
	out := make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		schema, err := compiler.Compile(schemaBase + name + ".json")
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		out[name] = schema
	}
	return out, nil
}

func mustCompileSchemas(names ...string) map[string]*jsonschema.Schema {
	schemas, err := compileSchemas(names...)
	if err != nil {
		panic(err)
	}
	return schemas
}

// errBadRequest marks body errors that map to 400.
var errBadRequest = errors.New("bad request")

// decodeBody validates the request body against the named schema and then
// decodes it into dst.
func decodeBody(r *http.Request, schema string, dst any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", errBadRequest, err)
	}
	if len(raw) > maxBodyBytes {
		return fmt.Errorf("%w: body too large", errBadRequest)
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: invalid JSON", errBadRequest)
	}
	if err := requestSchemas[schema].Validate(payload); err != nil {
		return fmt.Errorf("%w: %s", errBadRequest, describeValidation(err))
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: invalid JSON", errBadRequest)
	}
	return nil
}

// describeValidation flattens a schema failure into "location: message" leaves.
func describeValidation(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	var leaves []string
	var walk func(v *jsonschema.ValidationError)
	walk = func(v *jsonschema.ValidationError) {
		if len(v.Causes) == 0 {
			loc := v.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			leaves = append(leaves, loc+": "+v.Message)
			return
		}
		for _, c := range v.Causes {
			walk(c)
		}
	}
	walk(ve)
	return strings.Join(leaves, "; ")
}
