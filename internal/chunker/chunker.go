// Package chunker 把结构化档案拆成扁平的事实块列表
package chunker

import (
	"fmt"
	"strconv"
	"strings"

	"digital-twin-go/internal/types"
)

// Chunk 按固定顺序把档案拆成事实块
// 纯函数，同一份档案总是得到同样的结果；缺失的字段不产生块，也不会报错
func Chunk(profile *types.ProfileRecord) []types.Chunk {
	chunks := make([]types.Chunk, 0, 24)
	if profile == nil {
		return chunks
	}

	chunks = appendPersonal(chunks, profile.Personal)
	chunks = appendSkills(chunks, profile.Skills)
	chunks = appendEducation(chunks, profile.Education)
	chunks = appendProjects(chunks, profile.Projects)
	chunks = appendCareer(chunks, profile.CareerGoals)
	return chunks
}

func appendPersonal(chunks []types.Chunk, p *types.PersonalInfo) []types.Chunk {
	if p == nil {
		return chunks
	}

	if nameTitle := nameSentence(p.Name, p.Title); nameTitle != "" {
		chunks = append(chunks, newChunk("name", "Name and Title", nameTitle, types.ChunkPersonal))
	}
	if p.Location != "" {
		chunks = append(chunks, newChunk("location", "Location", "I am based in "+p.Location+".", types.ChunkPersonal))
	}
	if p.Summary != "" {
		chunks = append(chunks, newChunk("summary", "Professional Summary", p.Summary, types.ChunkPersonal))
	}
	if p.ElevatorPitch != "" {
		chunks = append(chunks, newChunk("elevator_pitch", "Elevator Pitch", p.ElevatorPitch, types.ChunkPersonal))
	}

	if !p.Contact.IsEmpty() {
		chunks = append(chunks, newChunk("contact", "Contact Information", contactSentence(p.Contact), types.ChunkPersonal))
		if p.Contact.Email != "" {
			chunks = append(chunks, newChunk("email", "Email", "My email address is "+p.Contact.Email+".", types.ChunkPersonal))
		}
	}
	return chunks
}

func nameSentence(name, title string) string {
	switch {
	case name != "" && title != "":
		return fmt.Sprintf("My name is %s. I am a %s.", name, title)
	case name != "":
		return fmt.Sprintf("My name is %s.", name)
	case title != "":
		return fmt.Sprintf("I am a %s.", title)
	}
	return ""
}

func contactSentence(c *types.Contact) string {
	parts := make([]string, 0, 2)
	if c.Email != "" {
		parts = append(parts, "You can reach me at "+c.Email+".")
	}

	switch {
	case c.LinkedIn != "" && c.GitHub != "":
		parts = append(parts, fmt.Sprintf("My LinkedIn is %s and my GitHub is %s.", c.LinkedIn, c.GitHub))
	case c.LinkedIn != "":
		parts = append(parts, "My LinkedIn is "+c.LinkedIn+".")
	case c.GitHub != "":
		parts = append(parts, "My GitHub is "+c.GitHub+".")
	}
	return strings.Join(parts, " ")
}

func appendSkills(chunks []types.Chunk, s *types.Skills) []types.Chunk {
	if s == nil {
		return chunks
	}

	if t := s.Technical; t != nil {
		chunks = appendList(chunks, "design_specialties", "Design Specialties", t.DesignSpecialties, types.ChunkSkills)
		chunks = appendList(chunks, "database_specialties", "Database Specialties", t.DatabaseSpecialties, types.ChunkSkills)

		langs := make([]string, 0, len(t.ProgrammingLanguages))
		for _, l := range t.ProgrammingLanguages {
			if entry := languageEntry(l); entry != "" {
				langs = append(langs, entry)
			}
		}
		chunks = appendList(chunks, "programming_languages", "Programming Languages", langs, types.ChunkSkills)

		chunks = appendList(chunks, "database_systems", "Database Systems", t.DatabaseSystems, types.ChunkSkills)
		chunks = appendList(chunks, "tools", "Tools", t.Tools, types.ChunkSkills)
	}

	chunks = appendList(chunks, "soft_skills", "Soft Skills", s.SoftSkills, types.ChunkSkills)
	chunks = appendList(chunks, "certifications", "Certifications", s.Certifications, types.ChunkSkills)
	return chunks
}

// languageEntry 形如 "SQL (Expert): Query Writing"
func languageEntry(l types.LanguageSkill) string {
	if l.Language == "" {
		return ""
	}
	entry := l.Language
	if l.Proficiency != "" {
		entry += " (" + l.Proficiency + ")"
	}
	if l.Specialization != "" {
		entry += ": " + l.Specialization
	}
	return entry
}

func appendEducation(chunks []types.Chunk, e *types.Education) []types.Chunk {
	if e == nil {
		return chunks
	}

	if content := educationSentence(e); content != "" {
		chunks = append(chunks, newChunk("education", "Education", content, types.ChunkEducation))
	}
	if e.ThesisProject != "" {
		chunks = append(chunks, newChunk("thesis", "Thesis Project", "My thesis project is "+e.ThesisProject+".", types.ChunkEducation))
	}
	chunks = appendList(chunks, "coursework", "Relevant Coursework", e.RelevantCoursework, types.ChunkEducation)
	return chunks
}

func educationSentence(e *types.Education) string {
	var b strings.Builder
	switch {
	case e.Degree != "" && e.University != "":
		b.WriteString(e.Degree + " from " + e.University)
	case e.Degree != "":
		b.WriteString(e.Degree)
	case e.University != "":
		b.WriteString("Studied at " + e.University)
	}
	if e.GraduationYear > 0 {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString("(" + strconv.Itoa(e.GraduationYear) + ")")
	}
	return b.String()
}

func appendProjects(chunks []types.Chunk, projects []types.Project) []types.Chunk {
	for i, p := range projects {
		title := p.Name
		if title == "" {
			title = "Project"
		}

		var b strings.Builder
		b.WriteString(p.Description)
		b.WriteString(". Technologies: ")
		b.WriteString(strings.Join(p.Technologies, ", "))
		if p.Impact != "" {
			b.WriteString(" Impact: ")
			b.WriteString(p.Impact)
		}

		chunks = append(chunks, newChunk(fmt.Sprintf("project_%d", i), title, b.String(), types.ChunkProjects))
	}
	return chunks
}

func appendCareer(chunks []types.Chunk, g *types.CareerGoals) []types.Chunk {
	if g == nil {
		return chunks
	}

	parts := make([]string, 0, 2)
	if g.ShortTerm != "" {
		parts = append(parts, "Short-term: "+g.ShortTerm)
	}
	if g.LongTerm != "" {
		parts = append(parts, "Long-term: "+g.LongTerm)
	}
	if len(parts) > 0 {
		chunks = append(chunks, newChunk("career_goals", "Career Goals", strings.Join(parts, ". "), types.ChunkCareer))
	}

	chunks = appendList(chunks, "learning_focus", "Learning Focus", g.LearningFocus, types.ChunkCareer)
	chunks = appendList(chunks, "industries", "Industries of Interest", g.IndustriesInterested, types.ChunkCareer)
	return chunks
}

// appendList 列表非空时追加一个逗号拼接的块
func appendList(chunks []types.Chunk, id, title string, items []string, typ types.ChunkType) []types.Chunk {
	nonEmpty := make([]string, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it) != "" {
			nonEmpty = append(nonEmpty, it)
		}
	}
	if len(nonEmpty) == 0 {
		return chunks
	}
	return append(chunks, newChunk(id, title, strings.Join(nonEmpty, ", "), typ))
}

func newChunk(id, title, content string, typ types.ChunkType) types.Chunk {
	return types.Chunk{ID: id, Title: title, Content: content, Type: typ}
}
