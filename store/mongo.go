package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"civictrack-be/models"
	"civictrack-be/query"
)

// Mongo is the MongoDB backed Backend.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	// Multi-document transactions need a replica set; standalone
	// development servers run fn directly.
	transactions bool
}

func NewMongo(client *mongo.Client, db *mongo.Database, transactions bool) *Mongo {
	return &Mongo{client: client, db: db, transactions: transactions}
}

func (m *Mongo) WithTx(ctx context.Context, fn func(ctx context.Context, stores StoreProvider) error) error {
	if !m.transactions {
		return fn(ctx, m)
	}

	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, m)
	})
	return err
}

func (m *Mongo) Issues() IssueStore {
	return &mongoIssueStore{coll: m.db.Collection(models.IssuesCollection)}
}

func (m *Mongo) Comments() CommentStore {
	return &mongoCommentStore{coll: m.db.Collection(models.CommentsCollection)}
}

func (m *Mongo) Attachments() AttachmentStore {
	return &mongoAttachmentStore{coll: m.db.Collection(models.AttachmentsCollection)}
}

func (m *Mongo) Users() UserStore {
	return &mongoUserStore{coll: m.db.Collection(models.UsersCollection)}
}

func (m *Mongo) Categories() CategoryStore {
	return &mongoLookupStore[models.Category]{
		coll: m.db.Collection(models.CategoriesCollection),
		sort: bson.D{{Key: "name", Value: 1}},
	}
}

func (m *Mongo) Statuses() StatusStore {
	return &mongoLookupStore[models.Status]{
		coll: m.db.Collection(models.StatusesCollection),
		sort: bson.D{{Key: "_id", Value: 1}},
	}
}

func (m *Mongo) Priorities() PriorityStore {
	return &mongoLookupStore[models.Priority]{
		coll: m.db.Collection(models.PrioritiesCollection),
		sort: bson.D{{Key: "sortOrder", Value: -1}},
	}
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter bson.M) (*T, error) {
	var out T
	if err := coll.FindOne(ctx, filter).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	return &out, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return out, nil
}

func insertOne(ctx context.Context, coll *mongo.Collection, doc any) error {
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert %s: %w", coll.Name(), err)
	}
	return nil
}

func replaceByID(ctx context.Context, coll *mongo.Collection, id int64, doc any) error {
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return fmt.Errorf("replace %s: %w", coll.Name(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func deleteMany(ctx context.Context, coll *mongo.Collection, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return fmt.Errorf("delete %s: %w", coll.Name(), err)
	}
	return nil
}

type mongoIssueStore struct {
	coll *mongo.Collection
}

func (s *mongoIssueStore) GetByID(ctx context.Context, id int64) (*models.Issue, error) {
	return findOne[models.Issue](ctx, s.coll, bson.M{"_id": id})
}

func (s *mongoIssueStore) Create(ctx context.Context, issue *models.Issue) error {
	return insertOne(ctx, s.coll, issue)
}

func (s *mongoIssueStore) Update(ctx context.Context, issue *models.Issue) error {
	return replaceByID(ctx, s.coll, issue.ID, issue)
}

func (s *mongoIssueStore) Delete(ctx context.Context, id int64) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *mongoIssueStore) FindPage(ctx context.Context, q *query.Query) ([]models.Issue, int64, error) {
	filter := q.Filter.BSON()

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count issues: %w", err)
	}

	findOptions := options.Find().
		SetSort(sortDocument(q.Page.Sort)).
		SetSkip(q.Page.Skip()).
		SetLimit(int64(q.Page.Size))

	issues, err := findAll[models.Issue](ctx, s.coll, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	return issues, total, nil
}

// sortDocument appends _id as a tiebreaker so skip/limit paging is stable.
func sortDocument(orders []query.SortOrder) bson.D {
	doc := make(bson.D, 0, len(orders)+1)
	hasID := false
	for _, o := range orders {
		key := o.Field
		if key == "id" {
			key = "_id"
		}
		hasID = hasID || key == "_id"
		dir := 1
		if o.Direction == query.Desc {
			dir = -1
		}
		doc = append(doc, bson.E{Key: key, Value: dir})
	}
	if !hasID {
		doc = append(doc, bson.E{Key: "_id", Value: 1})
	}
	return doc
}

type mongoCommentStore struct {
	coll *mongo.Collection
}

func (s *mongoCommentStore) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	return findOne[models.Comment](ctx, s.coll, bson.M{"_id": id})
}

func (s *mongoCommentStore) ListByIssue(ctx context.Context, issueID int64) ([]models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	return findAll[models.Comment](ctx, s.coll, bson.M{"issueId": issueID}, opts)
}

func (s *mongoCommentStore) Create(ctx context.Context, comment *models.Comment) error {
	return insertOne(ctx, s.coll, comment)
}

func (s *mongoCommentStore) Update(ctx context.Context, comment *models.Comment) error {
	return replaceByID(ctx, s.coll, comment.ID, comment)
}

func (s *mongoCommentStore) DeleteMany(ctx context.Context, ids []int64) error {
	return deleteMany(ctx, s.coll, ids)
}

type mongoAttachmentStore struct {
	coll *mongo.Collection
}

func (s *mongoAttachmentStore) GetByID(ctx context.Context, id int64) (*models.Attachment, error) {
	return findOne[models.Attachment](ctx, s.coll, bson.M{"_id": id})
}

func (s *mongoAttachmentStore) ListByIssue(ctx context.Context, issueID int64) ([]models.Attachment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	return findAll[models.Attachment](ctx, s.coll, bson.M{"issueId": issueID}, opts)
}

func (s *mongoAttachmentStore) ListByComments(ctx context.Context, commentIDs []int64) ([]models.Attachment, error) {
	if len(commentIDs) == 0 {
		return []models.Attachment{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	return findAll[models.Attachment](ctx, s.coll, bson.M{"commentId": bson.M{"$in": commentIDs}}, opts)
}

func (s *mongoAttachmentStore) CreateMany(ctx context.Context, attachments []models.Attachment) error {
	if len(attachments) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(attachments))
	for i := range attachments {
		if err := attachments[i].Validate(); err != nil {
			return err
		}
		docs = append(docs, attachments[i])
	}
	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert attachments: %w", err)
	}
	return nil
}

func (s *mongoAttachmentStore) Delete(ctx context.Context, id int64) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *mongoAttachmentStore) DeleteMany(ctx context.Context, ids []int64) error {
	return deleteMany(ctx, s.coll, ids)
}

type mongoUserStore struct {
	coll *mongo.Collection
}

func (s *mongoUserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return findOne[models.User](ctx, s.coll, bson.M{"_id": id})
}

func (s *mongoUserStore) GetByUserName(ctx context.Context, userName string) (*models.User, error) {
	return findOne[models.User](ctx, s.coll, bson.M{"userName": userName})
}

func (s *mongoUserStore) Create(ctx context.Context, user *models.User) error {
	return insertOne(ctx, s.coll, user)
}

func (s *mongoUserStore) List(ctx context.Context, role models.Role) ([]models.User, error) {
	filter := bson.M{}
	if role != "" {
		filter["roles"] = role
	}
	opts := options.Find().SetSort(bson.D{{Key: "fullName", Value: 1}})
	return findAll[models.User](ctx, s.coll, filter, opts)
}

type mongoLookupStore[T any] struct {
	coll *mongo.Collection
	sort bson.D
}

func (s *mongoLookupStore[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	return findOne[T](ctx, s.coll, bson.M{"_id": id})
}

func (s *mongoLookupStore[T]) GetByName(ctx context.Context, name string) (*T, error) {
	return findOne[T](ctx, s.coll, bson.M{"name": name})
}

func (s *mongoLookupStore[T]) List(ctx context.Context) ([]T, error) {
	return findAll[T](ctx, s.coll, bson.M{}, options.Find().SetSort(s.sort))
}

func (s *mongoLookupStore[T]) Create(ctx context.Context, item *T) error {
	return insertOne(ctx, s.coll, item)
}

func (s *mongoLookupStore[T]) Count(ctx context.Context) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", s.coll.Name(), err)
	}
	return n, nil
}
