package query

import (
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	maxDepth      = 4
	maxListValues = 500
)

var comparisonOps = map[string]bool{
	"$eq": true, "$ne": true,
	"$gt": true, "$gte": true, "$lt": true, "$lte": true,
	"$in": true, "$nin": true,
	"$exists": true,
}

var logicalOps = map[string]bool{"$and": true, "$or": true, "$nor": true}

func (t translator) filter(doc bson.D, depth int) (bson.D, error) {
	if depth > maxDepth {
		return nil, badRequest(ParamWhere, "nested deeper than %d levels", maxDepth)
	}
	out := make(bson.D, 0, len(doc))
	for _, e := range doc {
		if strings.HasPrefix(e.Key, "$") {
			clauses, err := t.logical(e.Key, e.Value, depth)
			if err != nil {
				return nil, err
			}
			out = append(out, bson.E{Key: e.Key, Value: clauses})
			continue
		}
		kind, ok := t.schema.kind(e.Key)
		if !ok {
			return nil, badRequest(ParamWhere, "unknown field %q", e.Key)
		}
		cond, err := t.condition(e.Key, kind, e.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, bson.E{Key: e.Key, Value: cond})
	}
	return out, nil
}

func (t translator) logical(op string, v any, depth int) (bson.A, error) {
	if !logicalOps[op] {
		return nil, badRequest(ParamWhere, "operator %q is not allowed", op)
	}
	arr, ok := v.(bson.A)
	if !ok || len(arr) == 0 {
		return nil, badRequest(ParamWhere, "%s expects a non-empty array of documents", op)
	}
	clauses := make(bson.A, 0, len(arr))
	for _, item := range arr {
		doc, ok := asDoc(item)
		if !ok {
			return nil, badRequest(ParamWhere, "%s expects a non-empty array of documents", op)
		}
		f, err := t.filter(doc, depth+1)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, f)
	}
	return clauses, nil
}

// condition handles either a literal (implicit $eq) or an operator document.
func (t translator) condition(field string, kind FieldKind, v any) (any, error) {
	doc, isDoc := asDoc(v)
	if !isDoc {
		return coerce(field, kind, v)
	}
	if len(doc) == 0 || !strings.HasPrefix(doc[0].Key, "$") {
		return nil, badRequest(ParamWhere, "field %q: embedded documents are not supported", field)
	}
	ops := make(bson.D, 0, len(doc))
	for _, op := range doc {
		if !comparisonOps[op.Key] {
			return nil, badRequest(ParamWhere, "field %q: operator %q is not allowed", field, op.Key)
		}
		var (
			val any
			err error
		)
		switch op.Key {
		case "$in", "$nin":
			val, err = coerceList(field, kind, op.Key, op.Value)
		case "$exists":
			b, ok := op.Value.(bool)
			if !ok {
				return nil, badRequest(ParamWhere, "field %q: $exists expects a boolean", field)
			}
			val = b
		default:
			val, err = coerce(field, kind, op.Value)
		}
		if err != nil {
			return nil, err
		}
		ops = append(ops, bson.E{Key: op.Key, Value: val})
	}
	return ops, nil
}

func coerceList(field string, kind FieldKind, op string, v any) (bson.A, error) {
	arr, ok := v.(bson.A)
	if !ok {
		return nil, badRequest(ParamWhere, "field %q: %s expects an array", field, op)
	}
	if len(arr) > maxListValues {
		return nil, badRequest(ParamWhere, "field %q: %s accepts at most %d values", field, op, maxListValues)
	}
	out := make(bson.A, 0, len(arr))
	for _, item := range arr {
		c, err := coerce(field, kind, item)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// coerce converts a decoded JSON scalar into the stored representation of
// field. Anything that cannot be stored in the field is rejected.
func coerce(field string, kind FieldKind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case KindObjectID:
		switch id := v.(type) {
		case primitive.ObjectID:
			return id, nil
		case string:
			oid, err := primitive.ObjectIDFromHex(id)
			if err != nil {
				return nil, badRequest(ParamWhere, "field %q: %q is not a valid id", field, id)
			}
			return oid, nil
		}
	case KindTime:
		switch ts := v.(type) {
		case primitive.DateTime:
			return ts, nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, ts)
			if err != nil {
				return nil, badRequest(ParamWhere, "field %q: %q is not an RFC 3339 timestamp", field, ts)
			}
			return primitive.NewDateTimeFromTime(parsed), nil
		default:
			if ms, ok := asInt(v); ok {
				return primitive.DateTime(ms), nil
			}
		}
	case KindBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			if b == "true" || b == "false" {
				return b == "true", nil
			}
		}
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case KindStringList:
		switch s := v.(type) {
		case string:
			return s, nil
		case bson.A:
			for _, item := range s {
				if _, ok := item.(string); !ok {
					return nil, badRequest(ParamWhere, "field %q: arrays may only hold strings", field)
				}
			}
			return s, nil
		}
	}
	return nil, badRequest(ParamWhere, "field %q: unsupported value %v", field, v)
}

// asDoc accepts both decoded document shapes. Map keys are sorted so the
// resulting filter is deterministic.
func asDoc(v any) (bson.D, bool) {
	switch d := v.(type) {
	case bson.D:
		return d, true
	case bson.M:
		keys := make([]string, 0, len(d))
		for k := range d {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(bson.D, 0, len(d))
		for _, k := range keys {
			out = append(out, bson.E{Key: k, Value: d[k]})
		}
		return out, true
	}
	return nil, false
}
