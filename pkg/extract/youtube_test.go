package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsYouTubeURL(t *testing.T) {
	assert.True(t, IsYouTubeURL("https://www.youtube.com/watch?v=abc123"))
	assert.True(t, IsYouTubeURL("https://youtube.com/watch?v=abc123"))
	assert.True(t, IsYouTubeURL("https://m.youtube.com/watch?v=abc123"))
	assert.True(t, IsYouTubeURL("https://youtu.be/abc123"))

	assert.False(t, IsYouTubeURL("https://example.com/watch?v=abc123"))
	assert.False(t, IsYouTubeURL("https://notyoutube.com/video"))
	assert.False(t, IsYouTubeURL("://bad-url"))
}
