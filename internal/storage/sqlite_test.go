package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/hyperjump/docimg/internal/models"
)

func openHistory(t *testing.T) *SQLiteHistory {
	t.Helper()
	store, err := NewSQLiteHistory(filepath.Join(t.TempDir(), "db", "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRun(id string, started time.Time) *models.RunSummary {
	return &models.RunSummary{
		RunID:               id,
		StartedAt:           started,
		FinishedAt:          started.Add(2 * time.Second),
		OutputDir:           "/tmp/out",
		Inputs:              []string{"/docs"},
		DocumentsProcessed:  2,
		DocumentsWithImages: 1,
		ImagesExtracted:     3,
		Documents: []*models.DocumentResult{
			{Path: "/docs/a.docx", Kind: models.KindDOCX, BaseName: "a", Matched: 3, Written: 3, Files: []string{"a_1.png", "a_2.png", "a_3.jpg"}},
			{Path: "/docs/b.epub", Kind: models.KindEPUB, Skipped: true, SkipReason: "metadata filter"},
			{Path: "/docs/c.docx", Kind: models.KindDOCX, Errors: []string{"archive c.docx: zip: not a valid zip file"}},
		},
		Failures: []models.Failure{{Path: "/docs/c.docx", Kind: "archive", Message: "archive c.docx: zip: not a valid zip file"}},
	}
}

func TestSQLiteHistory_RecordAndGet(t *testing.T) {
	store := openHistory(t)
	ctx := context.Background()
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	run := sampleRun("run-1", started)
	if err := store.RecordRun(ctx, run); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.StartedAt.Equal(started) || !got.FinishedAt.Equal(run.FinishedAt) {
		t.Errorf("times = %v / %v", got.StartedAt, got.FinishedAt)
	}
	if got.ImagesExtracted != 3 || got.DocumentsProcessed != 2 || got.DocumentsWithImages != 1 {
		t.Errorf("totals = %+v", got)
	}
	if !reflect.DeepEqual(got.Inputs, run.Inputs) || !reflect.DeepEqual(got.Failures, run.Failures) {
		t.Errorf("inputs = %v, failures = %v", got.Inputs, got.Failures)
	}
	if len(got.Documents) != 3 {
		t.Fatalf("documents = %d, want 3", len(got.Documents))
	}
	first := got.Documents[0]
	if first.Path != "/docs/a.docx" || first.Kind != models.KindDOCX || first.Written != 3 ||
		!reflect.DeepEqual(first.Files, []string{"a_1.png", "a_2.png", "a_3.jpg"}) {
		t.Errorf("first document = %+v", first)
	}
	if !got.Documents[1].Skipped || got.Documents[1].SkipReason != "metadata filter" {
		t.Errorf("second document = %+v", got.Documents[1])
	}
	if len(got.Documents[2].Errors) != 1 {
		t.Errorf("third document errors = %v", got.Documents[2].Errors)
	}
}

func TestSQLiteHistory_GetRunNotFound(t *testing.T) {
	store := openHistory(t)
	_, err := store.GetRun(context.Background(), "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
}

func TestSQLiteHistory_DuplicateRunRejected(t *testing.T) {
	store := openHistory(t)
	ctx := context.Background()
	run := sampleRun("run-1", time.Now().UTC())
	if err := store.RecordRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordRun(ctx, run); err == nil {
		t.Error("expected error when recording the same run twice")
	}
	if n, _ := store.CountRuns(ctx); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestSQLiteHistory_ListRuns(t *testing.T) {
	store := openHistory(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "middle", "new"} {
		if err := store.RecordRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}

	n, err := store.CountRuns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}

	runs, err := store.ListRuns(ctx, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].RunID != "new" || runs[1].RunID != "middle" {
		t.Fatalf("page 1 = %v", runs)
	}
	if runs[0].Documents != nil {
		t.Error("ListRuns should not load documents")
	}

	runs, err = store.ListRuns(ctx, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].RunID != "old" {
		t.Errorf("page 2 = %v", runs)
	}
}

func TestSQLiteHistory_SizeBytes(t *testing.T) {
	store := openHistory(t)
	n, err := store.SizeBytes()
	if err != nil {
		t.Fatal(err)
	}
	if n <= 0 {
		t.Errorf("size = %d, want > 0", n)
	}
}
