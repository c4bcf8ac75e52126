package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMentions(t *testing.T) {
	long := strings.Repeat("a", 160)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"dedupes and skips emails", "hello @bob and @bob again, email me at x@host.com", []string{"bob"}},
		{"word before at", "contact me at admin@site", nil},
		{"start of text", "@alice hi", []string{"alice"}},
		{"punctuation boundaries", "(@alice), @carol!", []string{"alice", "carol"}},
		{"too short", "hey @ab", nil},
		{"minimum length", "hey @abc", []string{"abc"}},
		{"double at", "@@dave", []string{"dave"}},
		{"underscore and digits", "ping @don_corleone42.", []string{"don_corleone42"}},
		{"first occurrence order", "@zed @amy @zed", []string{"zed", "amy"}},
		{"truncated at 150", "@" + long, []string{long[:150]}},
		{"no mentions", "nothing to see", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractMentions(tt.text)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
