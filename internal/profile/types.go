package profile

// Profile is the portfolio owner's structured record: identity, work history,
// skills and education. It is loaded once at startup and never mutated.
type Profile struct {
	Personal   Personal        `json:"personalInfo" yaml:"personal"`
	Experience []Job           `json:"experience" yaml:"experience"`
	Skills     []SkillCategory `json:"skills" yaml:"skills"`
	Education  []Degree        `json:"education" yaml:"education"`
	// Highlights are points the assistant should emphasize. They shape the
	// persona and are not part of the serialized data.
	Highlights []string `json:"highlights,omitempty" yaml:"highlights"`
}

// Personal captures identity and contact details.
type Personal struct {
	Name     string            `json:"name" yaml:"name"`
	Title    string            `json:"title" yaml:"title"`
	Location string            `json:"location" yaml:"location"`
	Email    string            `json:"email" yaml:"email"`
	Bio      string            `json:"bio" yaml:"bio"`
	Socials  map[string]string `json:"socials,omitempty" yaml:"socials"` // e.g. "github" → URL
}

// Job is one work history entry, most recent first.
type Job struct {
	ID          int    `json:"id" yaml:"id"`
	Role        string `json:"role" yaml:"role"`
	Company     string `json:"company" yaml:"company"`
	Period      string `json:"period" yaml:"period"`
	Description string `json:"description" yaml:"description"`
}

// SkillCategory groups related skills, e.g. "Cloud Platforms".
type SkillCategory struct {
	Category string   `json:"category" yaml:"category"`
	Items    []string `json:"items" yaml:"items"`
}

// Degree is one education entry.
type Degree struct {
	Degree string `json:"degree" yaml:"degree"`
	School string `json:"school" yaml:"school"`
	Year   string `json:"year" yaml:"year"`
}
