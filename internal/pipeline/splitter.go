package pipeline

import "strings"

// SplitText 将长文本按指定大小和重叠进行切分。
// 切分点优先落在段落边界（连续换行），其次是行边界、空格，最后才按字符硬切。
// 所有来源的文档统一使用这一套切分策略。
func SplitText(text string, chunkSize int, chunkOverlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + chunkSize
		if end >= len(runes) {
			if chunk := strings.TrimSpace(string(runes[start:])); chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		cut := findBoundary(runes, start, end)
		if chunk := strings.TrimSpace(string(runes[start:cut])); chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - chunkOverlap
		if next <= start {
			// 重叠不能让切分停滞不前
			next = cut
		}
		start = next
	}
	return chunks
}

// findBoundary 在 [start+chunkSize/2, end] 区间内从后往前寻找切分点。
// 找不到任何自然边界时在 end 处硬切。
func findBoundary(runes []rune, start, end int) int {
	min := start + (end-start)/2

	// 段落边界：连续两个换行
	for i := end; i > min; i-- {
		if runes[i-1] == '\n' && i >= 2 && runes[i-2] == '\n' {
			return i
		}
	}
	// 行边界
	for i := end; i > min; i-- {
		if runes[i-1] == '\n' {
			return i
		}
	}
	// 词边界
	for i := end; i > min; i-- {
		if runes[i-1] == ' ' {
			return i
		}
	}
	return end
}
