package retrieval

import (
	"sort"
	"strings"

	"digital-twin-go/internal/types"
)

// Score Dice 系数：2*匹配数/(len(q)+len(c))
// 问题词只要与任一块词相等、包含或被包含就算一次匹配
func Score(questionTokens, chunkTokens []string) float64 {
	if len(questionTokens) == 0 || len(chunkTokens) == 0 {
		return 0
	}

	matches := 0
	for _, q := range questionTokens {
		for _, c := range chunkTokens {
			if c == q || strings.Contains(c, q) || strings.Contains(q, c) {
				matches++
				break
			}
		}
	}

	// 问题词重复且都命中短块时会超过 1
	return min(1, float64(2*matches)/float64(len(questionTokens)+len(chunkTokens)))
}

// Rank 对每个块的 "标题 内容" 打分并按分数降序稳定排序
func Rank(questionTokens []string, chunks []types.Chunk) []types.ScoredChunk {
	scored := make([]types.ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		scored = append(scored, types.ScoredChunk{
			Chunk: c,
			Score: Score(questionTokens, Tokenize(c.Text())),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}
