package databases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/simeonpalla/GovLensAP/models"
)

const complaintCollection = "complaints"

// complaintMongo is the mongo-backed ComplaintDatabase, selected when DB_URI
// is set. Same contract as the file store; timeline mutations use $push so
// events are append-only at the document level too.
type complaintMongo struct {
	db DatabaseHelper
}

// NewComplaintDatabase initializes a mongo-backed complaint store with the
// provided db connection.
func NewComplaintDatabase(db DatabaseHelper) ComplaintDatabase {
	return &complaintMongo{db: db}
}

func (c *complaintMongo) InitStorage(ctx context.Context) error {
	// collections are created lazily on first insert
	return nil
}

func (c *complaintMongo) Find(ctx context.Context) ([]models.Complaint, error) {
	var complaints []models.Complaint
	err := c.db.Collection(complaintCollection).Find(ctx, bson.D{}).Decode(&complaints)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if complaints == nil {
		complaints = []models.Complaint{}
	}
	return complaints, nil
}

func (c *complaintMongo) FindByID(ctx context.Context, id string) (*models.Complaint, error) {
	complaint := &models.Complaint{}
	err := c.db.Collection(complaintCollection).FindOne(ctx, bson.M{"id": id}).Decode(complaint)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return complaint, nil
}

func (c *complaintMongo) Insert(ctx context.Context, complaint models.Complaint) error {
	count, err := c.db.Collection(complaintCollection).CountDocuments(ctx, bson.M{"id": complaint.ID})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if count > 0 {
		return ErrDuplicateID
	}
	res := c.db.Collection(complaintCollection).InsertOne(ctx, complaint)
	if res.Decode() == nil {
		return fmt.Errorf("%w: insert returned no id", ErrStorageUnavailable)
	}
	return nil
}

func (c *complaintMongo) AppendAction(ctx context.Context, id, action, notes, officer string) error {
	event := models.TimelineEvent{
		Stage:     action,
		Timestamp: time.Now().Format(time.RFC3339),
		Officer:   &officer,
		Action:    notes,
	}
	update := bson.M{
		"$push": bson.M{"timeline": event},
		"$set":  bson.M{"status": models.NextStatus(action)},
	}
	matched, err := c.db.Collection(complaintCollection).UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if matched == 0 {
		return ErrNotFound
	}
	return nil
}
