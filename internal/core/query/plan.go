// Package query translates loosely typed list parameters (where, sort,
// select, skip, limit, count) into a validated MongoDB query plan.
//
// Every field and operator is checked against a per-collection Schema, so a
// request can never reach fields or operators the collection does not expose.
package query

import (
	"errors"
	"fmt"
	"net/url"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrBadRequest marks a malformed or disallowed query parameter.
var ErrBadRequest = errors.New("invalid query parameter")

// Recognised parameter names.
const (
	ParamWhere  = "where"
	ParamSort   = "sort"
	ParamSelect = "select"
	ParamSkip   = "skip"
	ParamLimit  = "limit"
	ParamCount  = "count"
)

// Document is a stored entity as returned by a projected read.
type Document = bson.M

// Params is the raw, string-valued request parameter bag.
type Params map[string]string

// FromValues takes the first value of every key in v.
func FromValues(v url.Values) Params {
	p := make(Params, len(v))
	for k, vals := range v {
		if len(vals) > 0 {
			p[k] = vals[0]
		}
	}
	return p
}

// Plan is an executable query over one collection. Stages apply in the order
// filter, sort, skip, limit, project. When CountOnly is set only Filter is
// meaningful.
type Plan struct {
	Collection string
	Filter     bson.D
	Sort       bson.D
	Projection bson.D
	Skip       int64
	Limit      int64 // 0 = unbounded
	CountOnly  bool
}

// FindOptions renders the non-filter stages as driver options.
func (p Plan) FindOptions() *options.FindOptions {
	opts := options.Find()
	if len(p.Sort) > 0 {
		opts.SetSort(p.Sort)
	}
	if p.Skip > 0 {
		opts.SetSkip(p.Skip)
	}
	if p.Limit > 0 {
		opts.SetLimit(p.Limit)
	}
	if len(p.Projection) > 0 {
		opts.SetProjection(p.Projection)
	}
	return opts
}

func badRequest(param, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrBadRequest, param, fmt.Sprintf(format, args...))
}
