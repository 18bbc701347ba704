package blocked

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
)

func pad(s string) []byte {
	return []byte(s + strings.Repeat(" ", 2500))
}

func TestDetect(t *testing.T) {
	d := New(domain.BlockedConfig{})

	tests := []struct {
		name       string
		body       []byte
		wantBlock  bool
		wantReason string
	}{
		{"small body", []byte("<html>banzuke</html>"), true, ReasonSmallBody},
		{"block token without marker", pad("<h1>Attention Required! | Cloudflare</h1>"), true, ReasonBlockTokenNoMarker},
		{"block token with marker", pad("<table id=banzuke>captcha</table>"), false, ""},
		{"ordinary large page", pad("<html>hello</html>"), false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocked, reason := d.Detect(tt.body)
			assert.Equal(t, tt.wantBlock, blocked)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestNew_CustomConfig(t *testing.T) {
	d := New(domain.BlockedConfig{MinBytes: 4, BlockTokens: []string{"NOPE"}, ExpectedMarkers: []string{"ok"}})

	blocked, _ := d.Detect([]byte("abc"))
	assert.True(t, blocked)

	blocked, reason := d.Detect([]byte("nope nope"))
	assert.True(t, blocked)
	assert.Equal(t, ReasonBlockTokenNoMarker, reason)

	blocked, _ = d.Detect([]byte("nope ok"))
	assert.False(t, blocked)
}
