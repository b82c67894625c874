package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSuspiciousUserAgent(t *testing.T) {
	suspicious := []string{
		"",
		"curl/8.4.0",
		"Wget/1.21",
		"python-requests/2.31",
		"Googlebot/2.1",
		"my-scraper 1.0",
	}
	for _, ua := range suspicious {
		assert.True(t, isSuspiciousUserAgent(ua), "expected %q to be rejected", ua)
	}

	legitimate := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)",
	}
	for _, ua := range legitimate {
		assert.False(t, isSuspiciousUserAgent(ua), "expected %q to pass", ua)
	}
}
