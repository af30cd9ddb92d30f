// Package content holds the content plan record, the single-post record and
// the stage that generates them.
package content

import (
	"linkedin-optimizer/internal/llm"
	"linkedin-optimizer/internal/normalize"
)

// Strategy is the posting strategy.
type Strategy struct {
	PostingFrequency string `json:"posting_frequency"`
	BestPostingTimes []any  `json:"best_posting_times"`
	ContentPillars   []any  `json:"content_pillars"`
	HashtagStrategy  []any  `json:"hashtag_strategy"`
}

// Idea is one proposed piece of content.
type Idea struct {
	Type           string `json:"type"`
	Topic          string `json:"topic"`
	Objective      string `json:"objective"`
	TargetAudience string `json:"target_audience"`
	Content        string `json:"content"`
	Hashtags       []any  `json:"hashtags"`
	CallToAction   string `json:"call_to_action"`
}

// SamplePost is a ready-to-publish post.
type SamplePost struct {
	Title           string `json:"title"`
	Content         string `json:"content"`
	Hashtags        []any  `json:"hashtags"`
	EngagementHooks []any  `json:"engagement_hooks"`
}

// CalendarEntry is one slot of the weekly calendar.
type CalendarEntry struct {
	Day              string `json:"day"`
	ContentType      string `json:"content_type"`
	Topic            string `json:"topic"`
	BriefDescription string `json:"brief_description"`
}

// Content is the normalized content plan.
type Content struct {
	ContentStrategy       Strategy        `json:"content_strategy"`
	ContentIdeas          []Idea          `json:"content_ideas"`
	SamplePosts           []SamplePost    `json:"sample_posts"`
	WeeklyContentCalendar []CalendarEntry `json:"weekly_content_calendar"`
	TokenUsage            *llm.Usage      `json:"token_usage,omitempty"`
}

// Post is a single generated post.
type Post struct {
	Title              string     `json:"title"`
	Content            string     `json:"content"`
	Hashtags           []any      `json:"hashtags"`
	EngagementHooks    []any      `json:"engagement_hooks"`
	BestPostingTime    string     `json:"best_posting_time"`
	ExpectedEngagement string     `json:"expected_engagement"`
	TokenUsage         *llm.Usage `json:"token_usage,omitempty"`
}

// Normalize builds Content from decoded model output. List entries that are
// not objects are dropped.
func Normalize(raw map[string]any) Content {
	s := normalize.Object(raw["content_strategy"])
	c := Content{
		ContentStrategy: Strategy{
			PostingFrequency: normalize.String(s["posting_frequency"]),
			BestPostingTimes: normalize.List(s["best_posting_times"]),
			ContentPillars:   normalize.List(s["content_pillars"]),
			HashtagStrategy:  normalize.List(s["hashtag_strategy"]),
		},
		ContentIdeas:          []Idea{},
		SamplePosts:           []SamplePost{},
		WeeklyContentCalendar: []CalendarEntry{},
		TokenUsage:            llm.UsageFrom(raw["token_usage"]),
	}
	for _, m := range normalize.Objects(raw["content_ideas"]) {
		c.ContentIdeas = append(c.ContentIdeas, Idea{
			Type:           normalize.String(m["type"]),
			Topic:          normalize.String(m["topic"]),
			Objective:      normalize.String(m["objective"]),
			TargetAudience: normalize.String(m["target_audience"]),
			Content:        normalize.String(m["content"]),
			Hashtags:       normalize.List(m["hashtags"]),
			CallToAction:   normalize.String(m["call_to_action"]),
		})
	}
	for _, m := range normalize.Objects(raw["sample_posts"]) {
		c.SamplePosts = append(c.SamplePosts, SamplePost{
			Title:           normalize.String(m["title"]),
			Content:         normalize.String(m["content"]),
			Hashtags:        normalize.List(m["hashtags"]),
			EngagementHooks: normalize.List(m["engagement_hooks"]),
		})
	}
	for _, m := range normalize.Objects(raw["weekly_content_calendar"]) {
		c.WeeklyContentCalendar = append(c.WeeklyContentCalendar, CalendarEntry{
			Day:              normalize.String(m["day"]),
			ContentType:      normalize.String(m["content_type"]),
			Topic:            normalize.String(m["topic"]),
			BriefDescription: normalize.String(m["brief_description"]),
		})
	}
	return c
}

// NormalizePost builds a Post from decoded model output.
func NormalizePost(raw map[string]any) Post {
	return Post{
		Title:              normalize.String(raw["title"]),
		Content:            normalize.String(raw["content"]),
		Hashtags:           normalize.List(raw["hashtags"]),
		EngagementHooks:    normalize.List(raw["engagement_hooks"]),
		BestPostingTime:    normalize.String(raw["best_posting_time"]),
		ExpectedEngagement: normalize.String(raw["expected_engagement"]),
		TokenUsage:         llm.UsageFrom(raw["token_usage"]),
	}
}

// HasStrategy reports whether the strategy carries any content.
func (c Content) HasStrategy() bool {
	s := c.ContentStrategy
	return s.PostingFrequency != "" || len(s.BestPostingTimes)+len(s.ContentPillars)+len(s.HashtagStrategy) > 0
}

// Categories lists the supported content categories.
func Categories() []string {
	return []string{
		"thought_leadership",
		"industry_insights",
		"career_achievements",
		"professional_tips",
		"team_appreciation",
		"project_showcase",
		"learning_journey",
		"networking_engagement",
		"company_culture",
		"industry_trends",
		"skill_development",
		"motivational_content",
	}
}

// PostTypes lists the supported LinkedIn post formats.
func PostTypes() []string {
	return []string{
		"text_post",
		"image_post",
		"document_carousel",
		"video_post",
		"poll",
		"article",
		"event_announcement",
		"job_posting",
	}
}
