package query

import (
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// Parse validates p against schema and builds the plan. Empty values are
// treated as absent. A count request uses only where; sort, select, skip and
// limit are neither read nor validated.
func Parse(p Params, schema Schema) (Plan, error) {
	t := translator{schema: schema}
	plan := Plan{
		Collection: schema.Collection,
		Filter:     bson.D{},
		Limit:      schema.DefaultLimit,
	}

	if raw := p[ParamWhere]; raw != "" {
		doc, err := decode(ParamWhere, raw)
		if err != nil {
			return Plan{}, err
		}
		if plan.Filter, err = t.filter(doc, 1); err != nil {
			return Plan{}, err
		}
	}

	if p[ParamCount] == "true" {
		plan.CountOnly = true
		plan.Limit = 0
		return plan, nil
	}

	if raw := p[ParamSort]; raw != "" {
		doc, err := decode(ParamSort, raw)
		if err != nil {
			return Plan{}, err
		}
		if plan.Sort, err = t.sort(doc); err != nil {
			return Plan{}, err
		}
	}

	if raw := p[ParamSelect]; raw != "" {
		doc, err := decode(ParamSelect, raw)
		if err != nil {
			return Plan{}, err
		}
		if plan.Projection, err = t.projection(doc); err != nil {
			return Plan{}, err
		}
	}

	if raw := p[ParamSkip]; raw != "" {
		n, err := nonNegative(ParamSkip, raw)
		if err != nil {
			return Plan{}, err
		}
		plan.Skip = n
	}

	if raw := p[ParamLimit]; raw != "" {
		n, err := nonNegative(ParamLimit, raw)
		if err != nil {
			return Plan{}, err
		}
		plan.Limit = n
	}

	return plan, nil
}

// ProjectionOnly parses just the select parameter, for single-entity reads.
func ProjectionOnly(p Params, schema Schema) (bson.D, error) {
	raw := p[ParamSelect]
	if raw == "" {
		return nil, nil
	}
	doc, err := decode(ParamSelect, raw)
	if err != nil {
		return nil, err
	}
	return translator{schema: schema}.projection(doc)
}

type translator struct {
	schema Schema
}

// decode reads relaxed extended JSON so key order survives into bson.D.
func decode(param, raw string) (bson.D, error) {
	var doc bson.D
	if err := bson.UnmarshalExtJSON([]byte(raw), false, &doc); err != nil {
		return nil, badRequest(param, "malformed JSON document")
	}
	return doc, nil
}

func nonNegative(param, raw string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 0 {
		return 0, badRequest(param, "must be a non-negative integer")
	}
	return n, nil
}

func (t translator) sort(doc bson.D) (bson.D, error) {
	out := make(bson.D, 0, len(doc))
	for _, e := range doc {
		if _, ok := t.schema.kind(e.Key); !ok {
			return nil, badRequest(ParamSort, "unknown field %q", e.Key)
		}
		dir, ok := direction(e.Value)
		if !ok {
			return nil, badRequest(ParamSort, "field %q: direction must be 1, -1, asc or desc", e.Key)
		}
		out = append(out, bson.E{Key: e.Key, Value: dir})
	}
	return out, nil
}

func direction(v any) (int32, bool) {
	if s, ok := v.(string); ok {
		switch strings.ToLower(s) {
		case "asc", "ascending":
			return 1, true
		case "desc", "descending":
			return -1, true
		}
		return 0, false
	}
	n, ok := asInt(v)
	if !ok || (n != 1 && n != -1) {
		return 0, false
	}
	return int32(n), true
}

// projection accepts either an inclusion or an exclusion document. The
// identifier is always returned, so excluding it is ignored.
func (t translator) projection(doc bson.D) (bson.D, error) {
	out := make(bson.D, 0, len(doc))
	mode := 0 // 1 include, -1 exclude
	for _, e := range doc {
		if _, ok := t.schema.kind(e.Key); !ok {
			return nil, badRequest(ParamSelect, "unknown field %q", e.Key)
		}
		include, ok := flag(e.Value)
		if !ok {
			return nil, badRequest(ParamSelect, "field %q: value must be 0, 1, true or false", e.Key)
		}
		if e.Key == IDField {
			if include {
				out = append(out, bson.E{Key: IDField, Value: 1})
			}
			continue
		}
		m, value := -1, 0
		if include {
			m, value = 1, 1
		}
		if mode != 0 && mode != m {
			return nil, badRequest(ParamSelect, "cannot mix inclusion and exclusion")
		}
		mode = m
		out = append(out, bson.E{Key: e.Key, Value: value})
	}
	if mode == -1 {
		// an exclusion projection keeps _id implicitly
		filtered := out[:0]
		for _, e := range out {
			if e.Key != IDField {
				filtered = append(filtered, e)
			}
		}
		out = filtered
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func flag(v any) (bool, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	n, ok := asInt(v)
	if !ok || (n != 0 && n != 1) {
		return false, false
	}
	return n == 1, true
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}
