package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJobStatus(t *testing.T) {
	tests := []struct {
		input    string
		expected JobStatus
		wantErr  bool
	}{
		{"queued", JobStatusQueued, false},
		{"running", JobStatusRunning, false},
		{"completed", JobStatusCompleted, false},
		{"failed", JobStatusFailed, false},
		{"unknown", JobStatusUnknown, false},
		{"bogus", JobStatusUnknown, true},
		{"", JobStatusUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			status, err := ParseJobStatus(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, status)
		})
	}
}

func TestJobStatusString(t *testing.T) {
	assert.Equal(t, "queued", JobStatusQueued.String())
	assert.Equal(t, "failed", JobStatusFailed.String())
	assert.Equal(t, "unknown", JobStatus(99).String())
	assert.Equal(t, "unknown", JobStatus(-1).String())
}

func TestJobStatusJSON(t *testing.T) {
	for _, status := range []JobStatus{JobStatusQueued, JobStatusRunning, JobStatusCompleted, JobStatusFailed} {
		data, err := json.Marshal(status)
		require.NoError(t, err)

		var decoded JobStatus
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, status, decoded)
	}

	var decoded JobStatus
	assert.Error(t, json.Unmarshal([]byte(`"bogus"`), &decoded))
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, JobStatusQueued.IsTerminal())
	assert.False(t, JobStatusRunning.IsTerminal())
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
}

func TestValidTransition(t *testing.T) {
	allowed := []struct{ from, to JobStatus }{
		{JobStatusQueued, JobStatusRunning},
		{JobStatusQueued, JobStatusFailed}, // cancellation before the first attempt
		{JobStatusRunning, JobStatusRunning},
		{JobStatusRunning, JobStatusCompleted},
		{JobStatusRunning, JobStatusFailed},
	}
	for _, tt := range allowed {
		assert.True(t, ValidTransition(tt.from, tt.to), "%s -> %s should be allowed", tt.from, tt.to)
	}

	forbidden := []struct{ from, to JobStatus }{
		{JobStatusQueued, JobStatusCompleted},
		{JobStatusCompleted, JobStatusRunning},
		{JobStatusCompleted, JobStatusFailed},
		{JobStatusFailed, JobStatusQueued},
		{JobStatusFailed, JobStatusRunning},
		{JobStatusUnknown, JobStatusRunning},
	}
	for _, tt := range forbidden {
		assert.False(t, ValidTransition(tt.from, tt.to), "%s -> %s should be rejected", tt.from, tt.to)
	}
}

func TestNewJobID(t *testing.T) {
	id := NewJobID()
	assert.True(t, strings.HasPrefix(id, JobIDPrefix))
	assert.Len(t, id, len(JobIDPrefix)+8)

	assert.NotEqual(t, id, NewJobID())
}

func TestNewGenerateJob(t *testing.T) {
	params := Params{Model: "gemini-3-pro-image-preview", AspectRatio: "16:9", Size: "2K", NumImages: 2}
	job := NewGenerateJob("a lighthouse at dusk", params)

	assert.Equal(t, JobKindGenerate, job.Kind)
	assert.Equal(t, JobStatusQueued, job.Status)
	assert.Zero(t, job.Attempts)
	assert.Equal(t, params, job.Params)
	assert.NotEmpty(t, job.ID)
	assert.False(t, job.CreatedAt.IsZero())
}

func TestNewEditJob(t *testing.T) {
	job := NewEditJob("make it night", "cat.png", Params{InputData: "aGVsbG8=", InputMIME: "image/png"})

	assert.Equal(t, JobKindEdit, job.Kind)
	assert.Equal(t, "cat.png", job.SourceImage)
	assert.Equal(t, "aGVsbG8=", job.Params.InputData)
	assert.Equal(t, JobStatusQueued, job.Status)
}

func TestImagesValueScan(t *testing.T) {
	images := Images{
		{Index: 0, MIMEType: "image/png", Data: "aGVsbG8="},
		{Index: 1, MIMEType: "image/jpeg", Path: "/tmp/out.jpg"},
	}

	value, err := images.Value()
	require.NoError(t, err)

	var decoded Images
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, images, decoded)

	// nil column scans to an empty list, never nil panic material
	var empty Images
	require.NoError(t, empty.Scan(nil))
	assert.Empty(t, empty)

	var nilImages Images
	value, err = nilImages.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", value)

	assert.Error(t, decoded.Scan(42))
}

func TestPromptPreview(t *testing.T) {
	job := &Job{Prompt: "a very long prompt about nothing in particular"}
	assert.Equal(t, "a very long prompt about nothing in particular", job.PromptPreview(100))
	assert.Equal(t, "a very ...", job.PromptPreview(10))
	assert.Equal(t, "a v", job.PromptPreview(3))
}

func TestListOptionsWithDefaults(t *testing.T) {
	var opts *ListOptions
	got := opts.WithDefaults()
	assert.Equal(t, DefaultListLimit, got.Limit)

	got = (&ListOptions{Limit: -5}).WithDefaults()
	assert.Equal(t, DefaultListLimit, got.Limit)

	got = (&ListOptions{Limit: MaxListLimit + 1}).WithDefaults()
	assert.Equal(t, MaxListLimit, got.Limit)

	got = (&ListOptions{Limit: 7, Offset: 3}).WithDefaults()
	assert.Equal(t, 7, got.Limit)
	assert.Equal(t, 3, got.Offset)
}
