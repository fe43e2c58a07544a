package queue_test

import (
	"errors"
	"testing"

	"snag/internal/queue"
	"snag/internal/services"
)

func TestParseJobDefaults(t *testing.T) {
	job, err := queue.ParseJob("a.dljob", []byte(`{"url":"https://example.test/v/1"}`))
	if err != nil {
		t.Fatalf("ParseJob: %v", err)
	}
	if job.App != queue.DefaultApp {
		t.Fatalf("App = %q, want default", job.App)
	}
	if job.Category != queue.DefaultCategory {
		t.Fatalf("Category = %q, want default", job.Category)
	}
	if job.ID != "a.dljob" {
		t.Fatalf("ID = %q", job.ID)
	}
}

func TestParseJobIgnoresUnknownFields(t *testing.T) {
	payload := []byte(`{"url":"https://example.test/v/1","app":"YouTube","quality":"best","requested_by":"phone"}`)
	job, err := queue.ParseJob("b.dljob", payload)
	if err != nil {
		t.Fatalf("ParseJob with extra fields: %v", err)
	}
	if job.Raw["quality"] != "best" {
		t.Fatal("unknown fields should be retained in Raw")
	}
}

func TestParseJobMissingURL(t *testing.T) {
	_, err := queue.ParseJob("c.dljob", []byte(`{"app":"YouTube"}`))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestParseJobNonHTTPURL(t *testing.T) {
	_, err := queue.ParseJob("d.dljob", []byte(`{"url":"ftp://example.test/file"}`))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestParseJobMalformedJSON(t *testing.T) {
	_, err := queue.ParseJob("e.dljob", []byte(`{"url": `))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
