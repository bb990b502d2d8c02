package chat

import (
	"testing"

	"ampsession/internal/approval"

	"github.com/stretchr/testify/assert"
)

func TestPickOption(t *testing.T) {
	req := approval.Request{Options: approval.DefaultOptions}
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"1", "AlwaysAllow", true},
		{"3", "Deny", true},
		{"4", "", false},
		{"0", "", false},
		{"allow", "Allow", true},
		{" DENY ", "Deny", true},
		{"y", "Allow", true},
		{"n", "Deny", true},
		{"a", "AlwaysAllow", true},
		{"maybe", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := pickOption(req, tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestPickOptionShortcutNeedsOption(t *testing.T) {
	req := approval.Request{Options: []string{"Allow", "Deny"}}
	_, ok := pickOption(req, "a")
	assert.False(t, ok)
}
