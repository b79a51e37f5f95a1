package history

import (
	"context"
	"fmt"
	"time"

	"github.com/sweetpotato0/ragguard/rag/workflow"
)

// Record is a persisted outcome of one reflective run, including its full
// audit trace.
type Record struct {
	ID          string          `json:"id" bson:"_id"`
	Query       string          `json:"query" bson:"query"`
	FinalAnswer string          `json:"final_answer" bson:"final_answer"`
	Confidence  float64         `json:"confidence" bson:"confidence"`
	Approved    bool            `json:"approved" bson:"approved"`
	Sources     []string        `json:"sources" bson:"sources"`
	Trace       []workflow.Step `json:"trace" bson:"trace"`
	CreatedAt   time.Time       `json:"created_at" bson:"created_at"`
}

// Store persists run records for audit and inspection.
type Store interface {
	// Save persists a record. A missing ID and CreatedAt are filled in.
	Save(ctx context.Context, rec *Record) error

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]*Record, error)

	// Clear removes all records.
	Clear(ctx context.Context) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
}

// FromResult builds a record from a run result.
func FromResult(result *workflow.RunResult) *Record {
	return &Record{
		Query:       result.Query,
		FinalAnswer: result.FinalAnswer,
		Confidence:  result.Confidence,
		Approved:    result.Approved,
		Sources:     result.Sources,
		Trace:       result.Trace,
		CreatedAt:   time.Now(),
	}
}

func prepare(rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("run:%d", time.Now().UnixNano())
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	return nil
}
