package responses

import (
	"encoding/json"
	"testing"
)

var rewriteSchema = map[string]any{
	"type":     "object",
	"required": []any{"title", "lyrics"},
	"properties": map[string]any{
		"title":  map[string]any{"type": "string"},
		"lyrics": map[string]any{"type": "string"},
		"notes":  map[string]any{"type": "string"},
	},
}

func TestValidate(t *testing.T) {
	v, err := NewValidator(rewriteSchema)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{name: "valid", doc: `{"title": "Song", "lyrics": "la la"}`, wantErr: false},
		{name: "valid with optional", doc: `{"title": "Song", "lyrics": "la", "notes": "n"}`, wantErr: false},
		{name: "missing required", doc: `{"title": "Song"}`, wantErr: true},
		{name: "wrong type", doc: `{"title": 7, "lyrics": "la"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(json.RawMessage(tt.doc))
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%s) error = %v, wantErr %v", tt.doc, err, tt.wantErr)
			}
		})
	}
}

func TestNewValidatorRejectsBadSchema(t *testing.T) {
	_, err := NewValidator(map[string]any{"type": 42})
	if err == nil {
		t.Error("expected error for invalid schema")
	}
}
