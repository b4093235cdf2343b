package genaiconv

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestNormalizeSystemInstruction(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		wantText string
		wantOK   bool
	}{
		{"nil", nil, "", false},
		{"string", "Be brief.", "Be brief.", true},
		{"empty string", "", "", false},
		{"string pointer", lo.ToPtr("Be kind."), "Be kind.", true},
		{"nil string pointer", (*string)(nil), "", false},
		{"content pointer", genai.NewContentFromText("You are helpful.", genai.RoleUser), "You are helpful.", true},
		{"nil content pointer", (*genai.Content)(nil), "", false},
		{
			"content value with several parts",
			genai.Content{Parts: []*genai.Part{
				genai.NewPartFromText("line one"),
				imagePart("x"),
				genai.NewPartFromText(""),
				genai.NewPartFromText("line two"),
			}},
			"line one\nline two",
			true,
		},
		{"content without text", &genai.Content{Parts: []*genai.Part{imagePart("x")}}, "", false},
		{"content with nil parts", &genai.Content{Role: genai.RoleUser}, "", false},
		{"content with empty parts", genai.Content{Parts: []*genai.Part{}}, "", false},
		{"content with only nil part", &genai.Content{Parts: []*genai.Part{nil}}, "", false},
		{"content with only empty text", &genai.Content{Parts: []*genai.Part{genai.NewPartFromText("")}}, "", false},
		{"unsupported type", 42, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, ok := NormalizeSystemInstruction(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantText, text)
		})
	}
}
