package types

// ProfileRecord 数字分身的结构化档案
// 所有分区和字段都是可选的，缺失的部分在分块时直接跳过
type ProfileRecord struct {
	Personal    *PersonalInfo `json:"personal,omitempty" yaml:"personal,omitempty"`
	Skills      *Skills       `json:"skills,omitempty" yaml:"skills,omitempty"`
	Education   *Education    `json:"education,omitempty" yaml:"education,omitempty"`
	Projects    []Project     `json:"projects_portfolio,omitempty" yaml:"projects_portfolio,omitempty"`
	CareerGoals *CareerGoals  `json:"career_goals,omitempty" yaml:"career_goals,omitempty"`
}

// PersonalInfo 个人信息分区
type PersonalInfo struct {
	Name          string   `json:"name,omitempty" yaml:"name,omitempty"`
	Title         string   `json:"title,omitempty" yaml:"title,omitempty"`
	Location      string   `json:"location,omitempty" yaml:"location,omitempty"`
	Summary       string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	ElevatorPitch string   `json:"elevator_pitch,omitempty" yaml:"elevator_pitch,omitempty"`
	Contact       *Contact `json:"contact,omitempty" yaml:"contact,omitempty"`
}

// Contact 联系方式
type Contact struct {
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
	LinkedIn string `json:"linkedin,omitempty" yaml:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty" yaml:"github,omitempty"`
}

// IsEmpty 所有联系方式都为空时返回 true
func (c *Contact) IsEmpty() bool {
	return c == nil || (c.Email == "" && c.LinkedIn == "" && c.GitHub == "")
}

// Skills 技能分区
type Skills struct {
	Technical      *TechnicalSkills `json:"technical,omitempty" yaml:"technical,omitempty"`
	SoftSkills     []string         `json:"soft_skills,omitempty" yaml:"soft_skills,omitempty"`
	Certifications []string         `json:"certifications,omitempty" yaml:"certifications,omitempty"`
}

// TechnicalSkills 技术技能
type TechnicalSkills struct {
	ProgrammingLanguages []LanguageSkill `json:"programming_languages,omitempty" yaml:"programming_languages,omitempty"`
	DatabaseSystems      []string        `json:"database_systems,omitempty" yaml:"database_systems,omitempty"`
	DesignSpecialties    []string        `json:"design_specialties,omitempty" yaml:"design_specialties,omitempty"`
	DatabaseSpecialties  []string        `json:"database_specialties,omitempty" yaml:"database_specialties,omitempty"`
	Tools                []string        `json:"tools,omitempty" yaml:"tools,omitempty"`
}

// LanguageSkill 单个编程语言的掌握情况
type LanguageSkill struct {
	Language       string `json:"language,omitempty" yaml:"language,omitempty"`
	Years          int    `json:"years,omitempty" yaml:"years,omitempty"`
	Proficiency    string `json:"proficiency,omitempty" yaml:"proficiency,omitempty"`
	Specialization string `json:"specialization,omitempty" yaml:"specialization,omitempty"`
}

// Education 教育分区
type Education struct {
	Degree             string   `json:"degree,omitempty" yaml:"degree,omitempty"`
	University         string   `json:"university,omitempty" yaml:"university,omitempty"`
	GraduationYear     int      `json:"graduation_year,omitempty" yaml:"graduation_year,omitempty"`
	RelevantCoursework []string `json:"relevant_coursework,omitempty" yaml:"relevant_coursework,omitempty"`
	ThesisProject      string   `json:"thesis_project,omitempty" yaml:"thesis_project,omitempty"`
}

// Project 作品集中的一个项目
type Project struct {
	Name         string   `json:"name,omitempty" yaml:"name,omitempty"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	Technologies []string `json:"technologies,omitempty" yaml:"technologies,omitempty"`
	Impact       string   `json:"impact,omitempty" yaml:"impact,omitempty"`
	GitHubURL    string   `json:"github_url,omitempty" yaml:"github_url,omitempty"`
	LiveDemo     string   `json:"live_demo,omitempty" yaml:"live_demo,omitempty"`
}

// CareerGoals 职业目标分区
type CareerGoals struct {
	ShortTerm            string   `json:"short_term,omitempty" yaml:"short_term,omitempty"`
	LongTerm             string   `json:"long_term,omitempty" yaml:"long_term,omitempty"`
	LearningFocus        []string `json:"learning_focus,omitempty" yaml:"learning_focus,omitempty"`
	IndustriesInterested []string `json:"industries_interested,omitempty" yaml:"industries_interested,omitempty"`
}

// DisplayName 返回档案中的姓名，没有则返回空字符串
func (p *ProfileRecord) DisplayName() string {
	if p == nil || p.Personal == nil {
		return ""
	}
	return p.Personal.Name
}
