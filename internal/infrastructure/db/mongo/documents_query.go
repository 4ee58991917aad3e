package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskboard/taskboard-api/internal/core/query"
)

// getDocument reads one projected document. An id that is not an ObjectID
// cannot exist, so it reports mongo.ErrNoDocuments like a miss.
func getDocument(ctx context.Context, col *mongo.Collection, id string, projection bson.D) (query.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}
	opts := options.FindOne()
	if len(projection) > 0 {
		opts.SetProjection(projection)
	}

	var doc query.Document
	if err := col.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return nil, err
		}
		return nil, storeErr("get "+col.Name(), err)
	}
	return doc, nil
}

func listDocuments(ctx context.Context, col *mongo.Collection, plan query.Plan) ([]query.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := col.Find(ctx, filterOrEmpty(plan.Filter), plan.FindOptions())
	if err != nil {
		return nil, storeErr("list "+col.Name(), err)
	}
	docs := []query.Document{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storeErr("list "+col.Name(), err)
	}
	return docs, nil
}

func countDocuments(ctx context.Context, col *mongo.Collection, filter bson.D) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := col.CountDocuments(ctx, filterOrEmpty(filter))
	if err != nil {
		return 0, storeErr("count "+col.Name(), err)
	}
	return n, nil
}

func filterOrEmpty(filter bson.D) bson.D {
	if filter == nil {
		return bson.D{}
	}
	return filter
}
