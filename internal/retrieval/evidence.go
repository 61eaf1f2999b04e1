package retrieval

import (
	"strings"

	"digital-twin-go/internal/types"
)

// DefaultTopK 最多参与生成的证据块数，也是允许配置的上限
const DefaultTopK = 3

// SelectEvidence 取排序结果的前 k 个，再过滤掉零分块
// k 不在 1..DefaultTopK 内时按 DefaultTopK 处理；第一名为零分时直接返回空证据
func SelectEvidence(ranked []types.ScoredChunk, k int) types.EvidenceSet {
	k = clampTopK(k)
	if len(ranked) == 0 || ranked[0].Score <= 0 {
		return types.EvidenceSet{Chunks: []types.ScoredChunk{}}
	}

	top := ranked
	if len(top) > k {
		top = top[:k]
	}

	kept := make([]types.ScoredChunk, 0, len(top))
	for _, sc := range top {
		if sc.Score > 0 {
			kept = append(kept, sc)
		}
	}

	return types.EvidenceSet{Chunks: kept, Context: BuildContext(kept)}
}

// BuildContext 每个证据块一段 "标题: 内容"，段落之间空一行
func BuildContext(evidence []types.ScoredChunk) string {
	blocks := make([]string, 0, len(evidence))
	for _, sc := range evidence {
		blocks = append(blocks, sc.Title+": "+sc.Content)
	}
	return strings.Join(blocks, "\n\n")
}

// Retriever 串起扩展、分词、打分与证据选择
type Retriever struct {
	expander *Expander
	topK     int
}

// NewRetriever 创建检索器；expander 为 nil 时使用默认同义词表
func NewRetriever(expander *Expander, topK int) *Retriever {
	if expander == nil {
		expander = NewExpander(nil)
	}
	return &Retriever{expander: expander, topK: clampTopK(topK)}
}

func clampTopK(k int) int {
	if k <= 0 || k > DefaultTopK {
		return DefaultTopK
	}
	return k
}

// Retrieve 针对本次调用的块集合挑选证据，不保留任何跨调用状态
func (r *Retriever) Retrieve(question string, chunks []types.Chunk) types.EvidenceSet {
	questionTokens := Tokenize(r.expander.Expand(question))
	return SelectEvidence(Rank(questionTokens, chunks), r.topK)
}
