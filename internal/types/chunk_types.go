package types

// ChunkType 表示事实块所属的类别
type ChunkType string

const (
	// ChunkPersonal 个人信息
	ChunkPersonal ChunkType = "personal"
	// ChunkSkills 技能
	ChunkSkills ChunkType = "skills"
	// ChunkEducation 教育经历
	ChunkEducation ChunkType = "education"
	// ChunkProjects 项目
	ChunkProjects ChunkType = "projects"
	// ChunkCareer 职业目标
	ChunkCareer ChunkType = "career"
)

// Chunk 从档案中拆出的一条可检索事实
type Chunk struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Type    ChunkType `json:"type"`
}

// Text 参与打分的文本 (标题 + 内容)
func (c Chunk) Text() string {
	return c.Title + " " + c.Content
}

// ScoredChunk 带相似度分数的事实块
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}

// Source 返回给调用方的证据来源
type Source struct {
	Title string    `json:"title"`
	Type  ChunkType `json:"type"`
	Score float64   `json:"score"`
}

// EvidenceSet 选中的证据及其拼接后的上下文
type EvidenceSet struct {
	Chunks  []ScoredChunk
	Context string
}

// Empty 没有任何可用证据
func (e EvidenceSet) Empty() bool {
	return len(e.Chunks) == 0
}

// Sources 将证据转换为对外的 Source 列表，始终返回非 nil 切片
func (e EvidenceSet) Sources() []Source {
	sources := make([]Source, 0, len(e.Chunks))
	for _, sc := range e.Chunks {
		sources = append(sources, Source{Title: sc.Title, Type: sc.Type, Score: sc.Score})
	}
	return sources
}
