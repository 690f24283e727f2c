package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pinsync/pinsync-server/internal/core/domain"
)

const uploadsCollection = "uploads"

// toggleRetries bounds the optimistic retry loop in ToggleLike. Each attempt
// only loses the race when another toggle for the same user and upload lands
// between the two guarded updates, so contention resolves quickly.
const toggleRetries = 3

// UploadRepository implements ports.UploadRepository on MongoDB. Counter
// mutations are expressed as single-document atomic updates, which gives the
// per-record linearization the engagement rules require without any
// process-local locking.
type UploadRepository struct {
	coll *mongo.Collection
}

func NewUploadRepository(db *mongo.Database) *UploadRepository {
	return &UploadRepository{coll: db.Collection(uploadsCollection)}
}

type mongoUpload struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Category    string             `bson:"category"`
	Description string             `bson:"description,omitempty"`
	Src         string             `bson:"src"`
	Uploader    string             `bson:"uploader"`
	Website     string             `bson:"website,omitempty"`
	LikeCount   int                `bson:"like_count"`
	LikedBy     []string           `bson:"liked_by"`
	Downloads   int                `bson:"downloads"`
	UploadedAt  time.Time          `bson:"uploaded_at"`
}

func (mu *mongoUpload) toDomain() *domain.Upload {
	u := &domain.Upload{
		ID:          mu.ID.Hex(),
		Name:        mu.Name,
		Category:    mu.Category,
		Description: mu.Description,
		Src:         mu.Src,
		Uploader:    mu.Uploader,
		Website:     mu.Website,
		LikeCount:   mu.LikeCount,
		LikedBy:     mu.LikedBy,
		Downloads:   mu.Downloads,
		UploadedAt:  mu.UploadedAt.UTC(),
	}
	if u.LikedBy == nil {
		u.LikedBy = []string{}
	}
	return u
}

func (r *UploadRepository) Create(ctx context.Context, upload *domain.Upload) (*domain.Upload, error) {
	doc := mongoUpload{
		Name:        upload.Name,
		Category:    upload.Category,
		Description: upload.Description,
		Src:         upload.Src,
		Uploader:    upload.Uploader,
		Website:     upload.Website,
		LikeCount:   upload.LikeCount,
		LikedBy:     upload.LikedBy,
		Downloads:   upload.Downloads,
		UploadedAt:  upload.UploadedAt,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert upload: %w", err)
	}

	created := *upload
	created.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return &created, nil
}

func (r *UploadRepository) FindByID(ctx context.Context, id string) (*domain.Upload, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUploadNotFound
	}

	var mu mongoUpload
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUploadNotFound
		}
		return nil, fmt.Errorf("find upload: %w", err)
	}
	return mu.toDomain(), nil
}

func (r *UploadRepository) List(ctx context.Context) ([]*domain.Upload, error) {
	cur, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer cur.Close(ctx)

	uploads := []*domain.Upload{}
	for cur.Next(ctx) {
		var mu mongoUpload
		if err := cur.Decode(&mu); err != nil {
			return nil, fmt.Errorf("decode upload: %w", err)
		}
		uploads = append(uploads, mu.toDomain())
	}
	return uploads, cur.Err()
}

// ToggleLike flips username's membership in liked_by and moves like_count by
// the same step inside one document update. The membership condition in each
// filter makes the flip idempotent-safe under concurrency: when two toggles
// for the same user race, exactly one matches each direction. A toggle that
// loses both guarded updates (the membership changed between them) retries.
func (r *UploadRepository) ToggleLike(ctx context.Context, id string, username string) (*domain.Upload, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUploadNotFound
	}

	after := options.FindOneAndUpdate().SetReturnDocument(options.After)

	for attempt := 0; attempt < toggleRetries; attempt++ {
		// Currently liked → remove.
		var mu mongoUpload
		err := r.coll.FindOneAndUpdate(ctx,
			bson.M{"_id": oid, "liked_by": username},
			bson.M{
				"$pull": bson.M{"liked_by": username},
				"$inc":  bson.M{"like_count": -1},
			},
			after,
		).Decode(&mu)
		if err == nil {
			return mu.toDomain(), nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("toggle like: %w", err)
		}

		// Not liked yet → add.
		err = r.coll.FindOneAndUpdate(ctx,
			bson.M{"_id": oid, "liked_by": bson.M{"$ne": username}},
			bson.M{
				"$addToSet": bson.M{"liked_by": username},
				"$inc":      bson.M{"like_count": 1},
			},
			after,
		).Decode(&mu)
		if err == nil {
			return mu.toDomain(), nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("toggle like: %w", err)
		}

		// Neither filter matched: the upload is gone, or a concurrent toggle
		// for the same user moved the membership between the two updates.
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			return nil, findErr
		}
	}

	return nil, fmt.Errorf("toggle like: contention on upload %s", id)
}

// IncrementDownloads bumps the download counter atomically; concurrent calls
// are never lost.
func (r *UploadRepository) IncrementDownloads(ctx context.Context, id string) (*domain.Upload, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUploadNotFound
	}

	var mu mongoUpload
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$inc": bson.M{"downloads": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&mu)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUploadNotFound
		}
		return nil, fmt.Errorf("increment downloads: %w", err)
	}
	return mu.toDomain(), nil
}

func (r *UploadRepository) Delete(ctx context.Context, id string) (*domain.Upload, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUploadNotFound
	}

	var mu mongoUpload
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUploadNotFound
		}
		return nil, fmt.Errorf("delete upload: %w", err)
	}
	return mu.toDomain(), nil
}

// EnsureIndexes creates supporting indexes on the uploads collection.
func (r *UploadRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "uploader", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
