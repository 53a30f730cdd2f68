package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	IssuesCollection      = "issues"
	CommentsCollection    = "comments"
	AttachmentsCollection = "attachments"
	UsersCollection       = "users"
	CategoriesCollection  = "categories"
	StatusesCollection    = "statuses"
	PrioritiesCollection  = "priorities"
)

// EnsureIndexes creates the unique and lookup indexes the stores rely on.
func EnsureIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "userName", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		AttachmentsCollection: {
			{Keys: bson.D{{Key: "publicId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "issueId", Value: 1}}},
			{Keys: bson.D{{Key: "commentId", Value: 1}}},
		},
		CommentsCollection: {
			{Keys: bson.D{{Key: "issueId", Value: 1}, {Key: "createdAt", Value: 1}}},
			{Keys: bson.D{{Key: "parentId", Value: 1}}},
		},
		IssuesCollection: {
			{Keys: bson.D{{Key: "reporter._id", Value: 1}}},
			{Keys: bson.D{{Key: "assignee._id", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		CategoriesCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		StatusesCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		PrioritiesCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}
