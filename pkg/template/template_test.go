package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_SimpleExpression(t *testing.T) {
	data := map[string]any{
		"name":  "John",
		"score": 8.5,
		"isNew": true,
	}

	result, err := Render("{{ .name }}", data)
	require.NoError(t, err)
	assert.Equal(t, "John", result)

	result, err = Render("{{ .isNew }}", data)
	require.NoError(t, err)
	assert.Equal(t, true, result)

	// Numbers always map to float
	result, err = Render("{{ .score }}", data)
	require.NoError(t, err)
	assert.Equal(t, 8.5, result)
}

func TestRender_ObjectConstruction(t *testing.T) {
	data := map[string]any{
		"payload": map[string]any{
			"entityId": "cand-1",
			"score":    9,
		},
	}

	result, err := Render(`{"candidate": "{{ .payload.entityId }}", "score": {{ .payload.score }}}`, data)
	require.NoError(t, err)

	resultMap, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "cand-1", resultMap["candidate"])
	assert.Equal(t, 9.0, resultMap["score"])
}

func TestRender_ErrorHandling(t *testing.T) {
	data := map[string]any{
		"test": "value",
	}

	_, err := Render("{ invalid..expression }}", data)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse json")

	_, err = Render("{{ nonexistent.field }}", data)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "function \"nonexistent\" not defined")
}

func TestRenderString(t *testing.T) {
	data := map[string]any{
		"payload": map[string]any{
			"entityId": "cand-1",
			"score":    8.5,
			"note":     "",
		},
		"rule": map[string]any{"name": "Shortlist"},
	}

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain text untouched", input: "manager@example.com", want: "manager@example.com"},
		{name: "interpolation", input: "Candidate {{ .payload.entityId }} scored {{ .payload.score }}", want: "Candidate cand-1 scored 8.5"},
		{name: "numeric output stays a string", input: "{{ .payload.score }}", want: "8.5"},
		{name: "default for empty value", input: `{{ default "n/a" .payload.note }}`, want: "n/a"},
		{name: "missing key is an error", input: "{{ .payload.missing }}", wantErr: true},
		{name: "parse error", input: "{{ .payload.entityId ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderString(tt.input, data)
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNeedsTemplating(t *testing.T) {
	assert.True(t, NeedsTemplating("Hello {{ .name }}"))
	assert.False(t, NeedsTemplating("Hello world"))
}
