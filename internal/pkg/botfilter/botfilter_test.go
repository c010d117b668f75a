package botfilter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"shoplens/internal/pkg/botfilter"
)

func TestIsBot(t *testing.T) {
	bots := []string{
		"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
		"Mozilla/5.0 (compatible; bingbot/2.0)",
		"curl/8.4.0",
		"python-requests/2.31.0",
		"Mozilla/5.0 (X11; Linux x86_64) HeadlessChrome/119.0",
		"Pingdom.com_bot_version_1.4",
	}
	for _, ua := range bots {
		assert.True(t, botfilter.IsBot(ua), "expected bot: %s", ua)
	}
}

func TestIsNotBot(t *testing.T) {
	humans := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15",
		"",
	}
	for _, ua := range humans {
		assert.False(t, botfilter.IsBot(ua), "expected human: %s", ua)
	}
}
