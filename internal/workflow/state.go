package workflow

import (
	"linkedin-optimizer/internal/analysis"
	"linkedin-optimizer/internal/content"
	"linkedin-optimizer/internal/llm"
	"linkedin-optimizer/internal/profile"
	"linkedin-optimizer/internal/progress"
)

// Status lines shown while a run progresses.
const (
	statusStarting        = "Starting LinkedIn Profile optimization..."
	statusExtracting      = "Extracting profile data from PDF..."
	statusExtracted       = "Profile data extracted successfully"
	statusExtractFailed   = "Failed to extract profile data"
	statusAnalyzing       = "Analyzing profile for optimization opportunities..."
	statusAnalyzed        = "Profile analysis completed"
	statusAnalyzeFailed   = "Failed to analyze profile"
	statusGenerating      = "Generating content ideas and posts..."
	statusGenerated       = "Content generation completed"
	statusGenerateFailed  = "Failed to generate content"
	statusCompiling       = "Compiling final optimization report..."
	statusCompiled        = "Optimization completed successfully"
	statusCompileFailed   = "Failed to compile results"
	statusResultSucceeded = "LinkedIn Profile optimization completed successfully"
	statusCritical        = "Critical workflow failure"
	statusNoResults       = "Workflow execution failed"
)

// State is threaded through every node of one run. Records are set once by
// their stage and read-only afterwards. Error is sticky.
type State struct {
	RequestID  string
	PDFPath    string
	PDFBytes   []byte
	TargetRole string
	Metadata   map[string]any

	Profile  *profile.Profile
	Analysis *analysis.Analysis
	Content  *content.Content

	// Err is the stage error; Error is its user-facing form.
	Err    error
	Error  string
	Status string

	StepTimings StepTimings
	Final       *FinalResult
}

func (s *State) fail(err error, prefix, status string) {
	s.Err = err
	s.Error = prefix + err.Error()
	s.Status = status
}

func (s *State) critical() bool {
	return s.Err != nil && llm.IsCritical(s.Err)
}

// FinalResult is the terminal output of a run.
type FinalResult struct {
	Success              bool               `json:"success"`
	Status               string             `json:"status"`
	Error                string             `json:"error,omitempty"`
	ErrorKind            string             `json:"error_kind,omitempty"`
	OptimizationID       string             `json:"optimization_id,omitempty"`
	ProfileData          *profile.Profile   `json:"profile_data,omitempty"`
	AnalysisResults      *analysis.Analysis `json:"analysis_results,omitempty"`
	ContentResults       *content.Content   `json:"content_results,omitempty"`
	Summary              *Summary           `json:"summary,omitempty"`
	RecommendationsCount *int               `json:"recommendations_count,omitempty"`
	ContentIdeasCount    *int               `json:"content_ideas_count,omitempty"`
	SamplePostsCount     *int               `json:"sample_posts_count,omitempty"`
	StepTimings          StepTimings        `json:"step_timings,omitempty"`
	TokenUsage           *llm.Usage         `json:"token_usage,omitempty"`
	StorageSaved         bool               `json:"storage_saved"`

	// Set only on results read back from storage.
	StorageInfo     *progress.StorageInfo `json:"storage_info,omitempty"`
	RequestMetadata map[string]any        `json:"request_metadata,omitempty"`
}

func intPtr(v int) *int { return &v }
