package service

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/taskboard/taskboard-api/internal/core/ports"
	"github.com/taskboard/taskboard-api/internal/core/query"
)

type lister interface {
	List(ctx context.Context, plan query.Plan) ([]query.Document, error)
	Count(ctx context.Context, filter bson.D) (int64, error)
}

func list(ctx context.Context, repo lister, plan query.Plan) (*ports.ListResult, error) {
	if plan.CountOnly {
		n, err := repo.Count(ctx, plan.Filter)
		if err != nil {
			return nil, err
		}
		return &ports.ListResult{Count: n, CountOnly: true}, nil
	}
	items, err := repo.List(ctx, plan)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []query.Document{}
	}
	return &ports.ListResult{Items: items}, nil
}
