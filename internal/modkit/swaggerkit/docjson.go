package swaggerkit

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
)

//go:embed openapi.json
var openAPI []byte

// SpecMutator adjusts the served document; modules register one from init
type SpecMutator func(map[string]any)

var (
	mu       sync.Mutex
	mutators []SpecMutator
)

// Register adds m to the mutators applied on every build of the document
func Register(m SpecMutator) {
	if m == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	mutators = append(mutators, m)
}

// errorSchema mirrors the reply envelope every error is written with
var errorSchema = map[string]any{
	"type":        "object",
	"description": "Error envelope",
	"required":    []any{"status_code", "status", "code", "kind", "error"},
	"properties": map[string]any{
		"status_code": map[string]any{"type": "integer"},
		"status":      map[string]any{"type": "string"},
		"code":        map[string]any{"type": "integer"},
		"kind":        map[string]any{"type": "string", "example": "not_found"},
		"error":       map[string]any{"type": "string"},
		"field":       map[string]any{"type": "string"},
		"request_id":  map[string]any{"type": "string"},
	},
}

// defaultReplies are added to every operation that does not declare them
var defaultReplies = []struct {
	status    int
	kind, msg string
}{
	{http.StatusBadRequest, "validation", "cycle must be an odd survey start year from 1999"},
	{http.StatusNotFound, "not_found", "run not found"},
	{http.StatusInternalServerError, "panic", "panic recovered"},
}

// buildDoc parses the embedded document and applies the defaults and mutators
func buildDoc(raw []byte, base, titleSuffix string) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("swaggerkit: parse openapi.json: %w", err)
	}
	doc["openapi"] = "3.0.3"
	doc["servers"] = []any{map[string]any{"url": base}}
	if info, ok := doc["info"].(map[string]any); ok && titleSuffix != "" {
		info["title"] = fmt.Sprintf("%v %s", info["title"], titleSuffix)
	}

	schemas := child(child(doc, "components"), "schemas")
	if _, ok := schemas["ErrorResponse"]; !ok {
		schemas["ErrorResponse"] = errorSchema
	}
	eachOperation(doc, func(op map[string]any) {
		replies := child(op, "responses")
		for _, d := range defaultReplies {
			key := strconv.Itoa(d.status)
			if _, ok := replies[key]; ok {
				continue
			}
			replies[key] = errorReply(d.status, d.kind, d.msg)
		}
	})

	mu.Lock()
	ms := append([]SpecMutator(nil), mutators...)
	mu.Unlock()
	for _, m := range ms {
		m(doc)
	}
	return doc, nil
}

func errorReply(status int, kind, msg string) map[string]any {
	return map[string]any{
		"description": http.StatusText(status),
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/ErrorResponse"},
				"example": map[string]any{
					"status_code": status,
					"status":      http.StatusText(status),
					"kind":        kind,
					"error":       msg,
				},
			},
		},
	}
}

// child returns m[key] as an object, creating it when absent
func child(m map[string]any, key string) map[string]any {
	c, ok := m[key].(map[string]any)
	if !ok {
		c = map[string]any{}
		m[key] = c
	}
	return c
}

func eachOperation(doc map[string]any, fn func(map[string]any)) {
	paths, _ := doc["paths"].(map[string]any)
	for _, p := range paths {
		item, _ := p.(map[string]any)
		for _, o := range item {
			if op, ok := o.(map[string]any); ok {
				fn(op)
			}
		}
	}
}

// docHandler serves the built document; a broken document is a 500
func docHandler(raw []byte, base, titleSuffix string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		doc, err := buildDoc(raw, base, titleSuffix)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(doc)
	}
}
