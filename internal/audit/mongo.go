package audit

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/JaimeStill/countersign/internal/workflow"
	"github.com/JaimeStill/countersign/pkg/lifecycle"
	"github.com/JaimeStill/countersign/pkg/pagination"
)

// Collection is the MongoDB collection holding ledger entries.
const Collection = "approval_audit"

// mongoSort maps sortable record fields to document keys.
var mongoSort = map[string]string{
	"ApprovedAt":    "approved_at",
	"CreatedAt":     "created_at",
	"Action":        "action",
	"Status":        "status",
	"StepReached":   "step_reached",
	"DocumentTitle": "document_title",
	"StudentName":   "student_name",
}

type event struct {
	ID                  string     `bson:"_id"`
	DocumentID          string     `bson:"document_id"`
	DocumentTitle       string     `bson:"document_title"`
	ApproverID          string     `bson:"approver_id"`
	ApproverName        string     `bson:"approver_name"`
	ApproverRole        string     `bson:"approver_role"`
	ApproverDesignation string     `bson:"approver_designation,omitempty"`
	StudentID           string     `bson:"student_id"`
	StudentName         string     `bson:"student_name"`
	Action              string     `bson:"action"`
	Comment             *string    `bson:"comment,omitempty"`
	Status              string     `bson:"status"`
	StepReached         string     `bson:"step_reached"`
	IsFinalApproval     bool       `bson:"is_final_approval"`
	ApprovedAt          time.Time  `bson:"approved_at"`
	SignedAt            *time.Time `bson:"signed_at,omitempty"`
	CreatedAt           time.Time  `bson:"created_at"`
}

func toEvent(r Record) event {
	return event{
		ID:                  r.ID.String(),
		DocumentID:          r.DocumentID.String(),
		DocumentTitle:       r.DocumentTitle,
		ApproverID:          r.ApproverID.String(),
		ApproverName:        r.ApproverName,
		ApproverRole:        r.ApproverRole,
		ApproverDesignation: r.ApproverDesignation,
		StudentID:           r.StudentID.String(),
		StudentName:         r.StudentName,
		Action:              string(r.Action),
		Comment:             r.Comment,
		Status:              string(r.Status),
		StepReached:         string(r.StepReached),
		IsFinalApproval:     r.IsFinalApproval,
		ApprovedAt:          r.ApprovedAt,
		SignedAt:            r.SignedAt,
		CreatedAt:           r.CreatedAt,
	}
}

func (e event) record() (Record, error) {
	ids := make([]uuid.UUID, 4)
	for i, s := range []string{e.ID, e.DocumentID, e.ApproverID, e.StudentID} {
		id, err := uuid.Parse(s)
		if err != nil {
			return Record{}, fmt.Errorf("decode audit event %s: %w", e.ID, err)
		}
		ids[i] = id
	}

	return Record{
		ID:                  ids[0],
		DocumentID:          ids[1],
		DocumentTitle:       e.DocumentTitle,
		ApproverID:          ids[2],
		ApproverName:        e.ApproverName,
		ApproverRole:        e.ApproverRole,
		ApproverDesignation: e.ApproverDesignation,
		StudentID:           ids[3],
		StudentName:         e.StudentName,
		Action:              Action(e.Action),
		Comment:             e.Comment,
		Status:              workflow.Status(e.Status),
		StepReached:         workflow.Step(e.StepReached),
		IsFinalApproval:     e.IsFinalApproval,
		ApprovedAt:          e.ApprovedAt,
		SignedAt:            e.SignedAt,
		CreatedAt:           e.CreatedAt,
	}, nil
}

// Mongo stores ledger entries in a MongoDB collection.
type Mongo struct {
	c          *mongo.Collection
	logger     *slog.Logger
	pagination pagination.Config
}

// NewMongo creates a MongoDB-backed audit ledger on db.
func NewMongo(db *mongo.Database, logger *slog.Logger, pagination pagination.Config) *Mongo {
	return &Mongo{
		c:          db.Collection(Collection),
		logger:     logger.With("system", "audit", "backend", BackendMongo),
		pagination: pagination,
	}
}

// Start registers a startup hook that ensures the query indexes exist.
func (m *Mongo) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup(func() {
		ctx, cancel := context.WithTimeout(lc.Context(), 30*time.Second)
		defer cancel()

		if err := m.EnsureIndexes(ctx); err != nil {
			m.logger.Error("audit index creation failed", "error", err)
			return
		}
		m.logger.Info("audit indexes ensured", "collection", Collection)
	})
	return nil
}

// EnsureIndexes creates the approver and document history indexes.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "approver_id", Value: 1},
				{Key: "approved_at", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "document_id", Value: 1},
				{Key: "approved_at", Value: 1},
			},
		},
	}
	_, err := m.c.Indexes().CreateMany(ctx, indexes)
	return err
}

func (m *Mongo) Record(ctx context.Context, rec Record) error {
	rec = stamp(rec, time.Now())
	if _, err := m.c.InsertOne(ctx, toEvent(rec)); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (m *Mongo) ByApprover(
	ctx context.Context,
	approverID uuid.UUID,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Record], error) {
	page.Normalize(m.pagination)

	filter := filters.bson()
	filter["approver_id"] = approverID.String()
	if page.Search != nil && *page.Search != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(*page.Search), "$options": "i"}
		filter["$or"] = bson.A{
			bson.M{"document_title": pattern},
			bson.M{"student_name": pattern},
			bson.M{"comment": pattern},
		}
	}

	total, err := m.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count audit events: %w", err)
	}

	opts := options.Find().
		SetSort(sortDoc(page.Sort)).
		SetLimit(int64(page.PageSize)).
		SetSkip(int64(page.Offset()))

	records, err := m.find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	result := pagination.NewPageResult(records, int(total), page.Page, page.PageSize)
	return &result, nil
}

func (m *Mongo) ByDocument(ctx context.Context, documentID uuid.UUID) ([]Record, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "approved_at", Value: 1},
		{Key: "created_at", Value: 1},
	})
	return m.find(ctx, bson.M{"document_id": documentID.String()}, opts)
}

func (m *Mongo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]Record, error) {
	cursor, err := m.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode audit events: %w", err)
	}

	records := make([]Record, 0, len(events))
	for _, e := range events {
		r, err := e.record()
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func (f Filters) bson() bson.M {
	filter := bson.M{}
	if f.Action != nil {
		filter["action"] = *f.Action
	}
	if f.Status != nil {
		filter["status"] = *f.Status
	}
	if f.DocumentID != nil {
		filter["document_id"] = f.DocumentID.String()
	}
	if f.Since != nil || f.Until != nil {
		window := bson.M{}
		if f.Since != nil {
			window["$gte"] = *f.Since
		}
		if f.Until != nil {
			window["$lte"] = *f.Until
		}
		filter["approved_at"] = window
	}
	return filter
}

func sortDoc(fields pagination.SortFields) bson.D {
	doc := bson.D{}
	for _, f := range fields {
		key, ok := mongoSort[f.Field]
		if !ok {
			continue
		}
		dir := 1
		if f.Descending {
			dir = -1
		}
		doc = append(doc, bson.E{Key: key, Value: dir})
	}
	if len(doc) == 0 {
		doc = bson.D{{Key: "approved_at", Value: -1}}
	}
	return doc
}
