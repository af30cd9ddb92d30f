package profile

import (
	"fmt"
	"strings"
)

type weightedSection struct {
	name   string
	weight int
}

var completenessWeights = []weightedSection{
	{SectionPersonalInfo, 20},
	{SectionSummary, 15},
	{SectionExperience, 20},
	{SectionEducation, 10},
	{SectionSkills, 10},
	{SectionCertifications, 5},
	{SectionRecommendations, 10},
	{SectionLanguages, 5},
	{SectionVolunteerExperience, 3},
	{SectionPublicationsProjects, 2},
}

// Completeness scores how much of the profile is filled in.
type Completeness struct {
	Score             int      `json:"completeness_score"`
	CompletedSections []string `json:"completed_sections"`
	MissingSections   []string `json:"missing_sections"`
	Recommendations   []string `json:"recommendations"`
}

// Completeness weighs ten sections to a total of 100. Personal info counts
// only with both a name and a title.
func (p Profile) Completeness() Completeness {
	c := Completeness{
		CompletedSections: []string{},
		MissingSections:   []string{},
		Recommendations:   []string{},
	}
	for _, ws := range completenessWeights {
		if p.sectionComplete(ws.name) {
			c.Score += ws.weight
			c.CompletedSections = append(c.CompletedSections, ws.name)
			continue
		}
		c.MissingSections = append(c.MissingSections, ws.name)
		c.Recommendations = append(c.Recommendations,
			fmt.Sprintf("Complete the %s section to improve your profile", ws.name))
	}
	return c
}

func (p Profile) sectionComplete(section string) bool {
	switch section {
	case SectionPersonalInfo:
		return nonEmpty(p.PersonalInfo.Name) && nonEmpty(p.PersonalInfo.Title)
	case SectionSummary:
		return strings.TrimSpace(p.Summary) != ""
	default:
		return len(p.list(section)) > 0
	}
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}
