package table

import (
	"errors"
	"fmt"

	"github.com/itchyny/gojq"

	"github.com/pdiddy/els-search/pkg/types"
)

// Projection is a compiled jq expression applied to each entry.
type Projection struct {
	expr string
	code *gojq.Code
}

// CompileProjection parses and compiles a jq expression.
func CompileProjection(expr string) (*Projection, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %w", err)
	}
	return &Projection{expr: expr, code: code}, nil
}

// Apply runs the expression over every entry and collects the object
// results in order. An entry may yield zero objects (a select filter) or
// several. Non-object results are an error since rows need column names.
func (p *Projection) Apply(entries []types.Entry) ([]types.Entry, error) {
	out := make([]types.Entry, 0, len(entries))
	for i, e := range entries {
		iter := p.code.Run(map[string]any(e))
		for {
			v, ok := iter.Next()
			if !ok {
				break
			}
			if err, isErr := v.(error); isErr {
				var haltErr *gojq.HaltError
				if errors.As(err, &haltErr) && haltErr.Value() == nil {
					break
				}
				return nil, fmt.Errorf("jq %q on entry %d: %w", p.expr, i, err)
			}
			switch val := v.(type) {
			case nil:
				continue
			case map[string]any:
				out = append(out, types.Entry(val))
			default:
				return nil, fmt.Errorf("jq %q on entry %d produced %T, want an object", p.expr, i, v)
			}
		}
	}
	return out, nil
}

// Project compiles expr and applies it to entries.
func Project(entries []types.Entry, expr string) ([]types.Entry, error) {
	p, err := CompileProjection(expr)
	if err != nil {
		return nil, err
	}
	return p.Apply(entries)
}

// Build implements search.TableBuilder: entries are projected, then recast.
func (p *Projection) Build(entries []types.Entry) (*types.Table, error) {
	projected, err := p.Apply(entries)
	if err != nil {
		return nil, err
	}
	return Recast{}.Build(projected)
}
