// Package profile holds the structured LinkedIn profile record and the
// stage that extracts it from a PDF.
package profile

import (
	"strings"

	"linkedin-optimizer/internal/llm"
	"linkedin-optimizer/internal/normalize"
)

// Section names in extraction order.
const (
	SectionPersonalInfo         = "personal_info"
	SectionSummary              = "summary"
	SectionExperience           = "experience"
	SectionEducation            = "education"
	SectionSkills               = "skills"
	SectionCertifications       = "certifications"
	SectionRecommendations      = "recommendations"
	SectionEndorsements         = "endorsements"
	SectionLanguages            = "languages"
	SectionVolunteerExperience  = "volunteer_experience"
	SectionPublicationsProjects = "publications_projects"
)

// Sections lists every top-level profile section.
var Sections = []string{
	SectionPersonalInfo,
	SectionSummary,
	SectionExperience,
	SectionEducation,
	SectionSkills,
	SectionCertifications,
	SectionRecommendations,
	SectionEndorsements,
	SectionLanguages,
	SectionVolunteerExperience,
	SectionPublicationsProjects,
}

// PersonalInfo fields are nil when the document did not state them.
type PersonalInfo struct {
	Name        *string `json:"name"`
	Title       *string `json:"title"`
	Location    *string `json:"location"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	LinkedInURL *string `json:"linkedin_url"`
}

// Profile is the normalized profile record. List sections hold the model's
// entries as decoded JSON values.
type Profile struct {
	PersonalInfo         PersonalInfo `json:"personal_info"`
	Summary              string       `json:"summary"`
	Experience           []any        `json:"experience"`
	Education            []any        `json:"education"`
	Skills               []any        `json:"skills"`
	Certifications       []any        `json:"certifications"`
	Recommendations      []any        `json:"recommendations"`
	Endorsements         []any        `json:"endorsements"`
	Languages            []any        `json:"languages"`
	VolunteerExperience  []any        `json:"volunteer_experience"`
	PublicationsProjects []any        `json:"publications_projects"`
	TokenUsage           *llm.Usage   `json:"token_usage,omitempty"`
}

// Normalize builds a Profile from decoded model output. Missing keys take
// their defaults and list sections with the wrong shape become empty.
func Normalize(raw map[string]any) Profile {
	pi := normalize.Object(raw[SectionPersonalInfo])
	return Profile{
		PersonalInfo: PersonalInfo{
			Name:        normalize.NullableString(pi["name"]),
			Title:       normalize.NullableString(pi["title"]),
			Location:    normalize.NullableString(pi["location"]),
			Email:       normalize.NullableString(pi["email"]),
			Phone:       normalize.NullableString(pi["phone"]),
			LinkedInURL: normalize.NullableString(pi["linkedin_url"]),
		},
		Summary:              normalize.String(raw[SectionSummary]),
		Experience:           normalize.List(raw[SectionExperience]),
		Education:            normalize.List(raw[SectionEducation]),
		Skills:               normalize.List(raw[SectionSkills]),
		Certifications:       normalize.List(raw[SectionCertifications]),
		Recommendations:      normalize.List(raw[SectionRecommendations]),
		Endorsements:         normalize.List(raw[SectionEndorsements]),
		Languages:            normalize.List(raw[SectionLanguages]),
		VolunteerExperience:  normalize.List(raw[SectionVolunteerExperience]),
		PublicationsProjects: normalize.List(raw[SectionPublicationsProjects]),
		TokenUsage:           llm.UsageFrom(raw["token_usage"]),
	}
}

func (p Profile) list(section string) []any {
	switch section {
	case SectionExperience:
		return p.Experience
	case SectionEducation:
		return p.Education
	case SectionSkills:
		return p.Skills
	case SectionCertifications:
		return p.Certifications
	case SectionRecommendations:
		return p.Recommendations
	case SectionEndorsements:
		return p.Endorsements
	case SectionLanguages:
		return p.Languages
	case SectionVolunteerExperience:
		return p.VolunteerExperience
	case SectionPublicationsProjects:
		return p.PublicationsProjects
	}
	return nil
}

func (pi PersonalInfo) filled() bool {
	for _, f := range []*string{pi.Name, pi.Title, pi.Location, pi.Email, pi.Phone, pi.LinkedInURL} {
		if f != nil && *f != "" {
			return true
		}
	}
	return false
}

// FilledSections returns the names of sections that carry any data.
func (p Profile) FilledSections() []string {
	out := make([]string, 0, len(Sections))
	for _, s := range Sections {
		switch s {
		case SectionPersonalInfo:
			if p.PersonalInfo.filled() {
				out = append(out, s)
			}
		case SectionSummary:
			if strings.TrimSpace(p.Summary) != "" {
				out = append(out, s)
			}
		default:
			if len(p.list(s)) > 0 {
				out = append(out, s)
			}
		}
	}
	return out
}

// ExtractionQuality is "good" when at least five sections were filled.
func (p Profile) ExtractionQuality() string {
	if len(p.FilledSections()) >= 5 {
		return "good"
	}
	return "limited"
}
