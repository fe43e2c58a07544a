package queue

import (
	"encoding/json"
	"fmt"
	"strings"

	"snag/internal/services"
)

// JobExt marks a file in the incoming directory as a job descriptor. Anything
// else is ignored by the scanner.
const JobExt = ".dljob"

const (
	// DefaultApp is assumed when a descriptor omits the app field.
	DefaultApp = "YouTube"
	// DefaultCategory groups downloads that declare no category.
	DefaultCategory = "unsorted"
)

// Job is the parsed form of one descriptor. ID is the descriptor filename,
// assigned by the producer at drop time and unique within the queue.
type Job struct {
	ID       string
	URL      string
	App      string
	Category string
	// Raw preserves the full payload, including fields snag does not
	// recognize, for diagnostics and forward compatibility.
	Raw map[string]any
}

// ParseJob decodes and validates descriptor content. Unknown fields are
// accepted and retained. Violations are validation-class errors: the job is
// rejected before any staging happens.
func ParseJob(id string, content []byte) (Job, error) {
	var raw map[string]any
	if err := json.Unmarshal(content, &raw); err != nil {
		return Job{}, services.Wrap(services.ErrValidation, "parse", "decode descriptor", fmt.Sprintf("%s is not valid JSON", id), err)
	}

	job := Job{
		ID:       id,
		URL:      strings.TrimSpace(stringField(raw, "url")),
		App:      strings.TrimSpace(stringField(raw, "app")),
		Category: strings.TrimSpace(stringField(raw, "category")),
		Raw:      raw,
	}

	if job.URL == "" {
		return Job{}, services.Wrap(services.ErrValidation, "parse", "validate descriptor", fmt.Sprintf("%s is missing required field url", id), nil)
	}
	lower := strings.ToLower(job.URL)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return Job{}, services.Wrap(services.ErrValidation, "parse", "validate descriptor", fmt.Sprintf("%s url is not http(s): %s", id, job.URL), nil)
	}
	if job.App == "" {
		job.App = DefaultApp
	}
	if job.Category == "" {
		job.Category = DefaultCategory
	}
	return job, nil
}

func stringField(raw map[string]any, key string) string {
	if value, ok := raw[key].(string); ok {
		return value
	}
	return ""
}
