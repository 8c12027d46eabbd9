package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name         string
		raw          classifierResponse
		wantErr      bool
		wantType     string
		wantSubtasks int
	}{
		{
			name:     "clean response",
			raw:      classifierResponse{TaskType: "SOCIAL_MEDIA_POST"},
			wantType: "SOCIAL_MEDIA_POST",
		},
		{
			name:     "task type normalized",
			raw:      classifierResponse{TaskType: " social media post "},
			wantType: "SOCIAL_MEDIA_POST",
		},
		{
			name:    "empty task type rejected",
			raw:     classifierResponse{TaskType: "   "},
			wantErr: true,
		},
		{
			name: "untitled subtasks dropped",
			raw: classifierResponse{
				TaskType: "GENERAL",
				Subtasks: []struct {
					Title     string `json:"title"`
					PhaseHint string `json:"phase_hint"`
				}{
					{Title: "Write outline", PhaseHint: "Draft"},
					{Title: "  ", PhaseHint: "Review"},
				},
			},
			wantType:     "GENERAL",
			wantSubtasks: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := validate(&tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantType, result.TaskType)
			assert.Len(t, result.Subtasks, tt.wantSubtasks)
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "markdown fenced object",
			content: "```json\n{\"task_type\": \"GENERAL\"}\n```",
			want:    `{"task_type": "GENERAL"}`,
		},
		{
			name:    "nested objects balanced",
			content: `prefix {"a": {"b": 1}} suffix`,
			want:    `{"a": {"b": 1}}`,
		},
		{
			name:    "braces inside strings ignored",
			content: `{"title": "use { and } freely"}`,
			want:    `{"title": "use { and } freely"}`,
		},
		{
			name:    "no object",
			content: "sorry, I cannot help",
			want:    "",
		},
		{
			name:    "unterminated object",
			content: `{"a": 1`,
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.content))
		})
	}
}
