package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkSizeOrDefault(t *testing.T) {
	assert.Equal(t, 1000, IngestConfig{}.ChunkSizeOrDefault())
	assert.Equal(t, 1000, IngestConfig{ChunkSize: -1}.ChunkSizeOrDefault())
	assert.Equal(t, 500, IngestConfig{ChunkSize: 500}.ChunkSizeOrDefault())
}

func TestChunkOverlapOrDefault(t *testing.T) {
	// 未配置时使用默认值
	assert.Equal(t, 200, IngestConfig{}.ChunkOverlapOrDefault())

	// 显式配置为 0 表示不做重叠，不回退到默认值
	zero := 0
	assert.Equal(t, 0, IngestConfig{ChunkOverlap: &zero}.ChunkOverlapOrDefault())

	custom := 300
	assert.Equal(t, 300, IngestConfig{ChunkOverlap: &custom}.ChunkOverlapOrDefault())

	negative := -10
	assert.Equal(t, 0, IngestConfig{ChunkOverlap: &negative}.ChunkOverlapOrDefault())
}
