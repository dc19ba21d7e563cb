package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSmallTalk(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"hello", true},
		{"Hello", true},
		{"Hi there!", true},
		{"hey there", true},
		{"Good morning!", true},
		{"  thanks!  ", true},
		{"Thank you.", true},
		{"OK", true},
		{"bye??", true},
		{"hello, what is the vacation policy", false},
		{"what is the vacation policy", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSmallTalk(tt.message))
		})
	}
}

func TestSmallTalkReplyNormalization(t *testing.T) {
	direct, ok := smallTalkReply("thanks")
	assert.True(t, ok)

	punctuated, ok := smallTalkReply("  Thanks!! ")
	assert.True(t, ok)
	assert.Equal(t, direct, punctuated)
}
