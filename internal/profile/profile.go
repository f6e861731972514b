package profile

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kalambet/folio/internal/composer"
)

//go:embed default.yaml
var defaultYAML []byte

// Default returns the built-in profile.
func Default() (Profile, error) {
	return Parse(defaultYAML)
}

// Load reads and validates a YAML profile file. An empty path selects the
// built-in profile.
func Load(path string) (Profile, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("reading profile %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return Profile{}, fmt.Errorf("loading profile %s: %w", path, err)
	}
	return p, nil
}

// Parse validates a YAML profile document and decodes it.
func Parse(data []byte) (Profile, error) {
	if err := Validate(data); err != nil {
		return Profile{}, err
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("decoding profile: %w", err)
	}
	return p, nil
}

// Snapshot is the immutable, pre-serialized view of a Profile handed to the
// assistant. It is built once at startup.
type Snapshot struct {
	profile    Profile
	resumeText string
	context    string
}

// contextPayload fixes the key order of the serialized context.
type contextPayload struct {
	PersonalInfo Personal        `json:"personalInfo"`
	Experience   []Job           `json:"experience"`
	Skills       []SkillCategory `json:"skills"`
	Education    []Degree        `json:"education"`
	Resume       string          `json:"resume,omitempty"`
}

// NewSnapshot serializes p (and optional résumé text) once.
func NewSnapshot(p Profile, resumeText string) (*Snapshot, error) {
	cp := deepCopyProfile(p)
	b, err := json.Marshal(contextPayload{
		PersonalInfo: cp.Personal,
		Experience:   cp.Experience,
		Skills:       cp.Skills,
		Education:    cp.Education,
		Resume:       resumeText,
	})
	if err != nil {
		return nil, fmt.Errorf("serializing profile context: %w", err)
	}
	return &Snapshot{profile: cp, resumeText: resumeText, context: string(b)}, nil
}

// Context returns the serialized profile used as grounding data.
func (s *Snapshot) Context() string { return s.context }

// OwnerName is the profile owner's display name.
func (s *Snapshot) OwnerName() string { return s.profile.Personal.Name }

// Persona returns what the chat persona needs to know about the owner.
func (s *Snapshot) Persona() composer.Persona {
	return composer.Persona{
		Name:       s.profile.Personal.Name,
		Location:   s.profile.Personal.Location,
		Highlights: append([]string(nil), s.profile.Highlights...),
	}
}

// HasResume reports whether résumé text was attached.
func (s *Snapshot) HasResume() bool { return s.resumeText != "" }

// Profile returns a copy of the underlying profile.
func (s *Snapshot) Profile() Profile { return deepCopyProfile(s.profile) }

func deepCopyProfile(p Profile) Profile {
	cp := p
	if p.Personal.Socials != nil {
		cp.Personal.Socials = make(map[string]string, len(p.Personal.Socials))
		for k, v := range p.Personal.Socials {
			cp.Personal.Socials[k] = v
		}
	}
	if p.Experience != nil {
		cp.Experience = make([]Job, len(p.Experience))
		copy(cp.Experience, p.Experience)
	}
	if p.Skills != nil {
		cp.Skills = make([]SkillCategory, len(p.Skills))
		for i, s := range p.Skills {
			cp.Skills[i] = SkillCategory{Category: s.Category, Items: append([]string(nil), s.Items...)}
		}
	}
	if p.Education != nil {
		cp.Education = make([]Degree, len(p.Education))
		copy(cp.Education, p.Education)
	}
	if p.Highlights != nil {
		cp.Highlights = append([]string(nil), p.Highlights...)
	}
	return cp
}
