package ai

import "time"

// FrameAnalysis is the schema demanded from the model for a single frame.
type FrameAnalysis struct {
	Summary        string         `json:"summary"`
	Objects        []string       `json:"objects"`
	Tags           []string       `json:"tags"`
	SceneType      string         `json:"scene_type"`
	VisualElements VisualElements `json:"visual_elements"`
}

type VisualElements struct {
	DominantColors []string `json:"dominant_colors"`
	Lighting       string   `json:"lighting"`
}

// ComparisonResult is the schema for a two-frame action comparison.
type ComparisonResult struct {
	ActionDescription string   `json:"action_description"`
	ObjectFlow        string   `json:"object_flow"`
	Differences       []string `json:"differences"`
	Confidence        *float64 `json:"confidence,omitempty"`
}

// AnalysisResult is the uniform outcome of a single-frame analysis call.
type AnalysisResult struct {
	Success  bool           `json:"success"`
	Path     string         `json:"path"`
	Analysis *FrameAnalysis `json:"analysis,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// FrameComparisonResult is the uniform outcome of a pairwise comparison.
type FrameComparisonResult struct {
	Success    bool              `json:"success"`
	StartPath  string            `json:"start_path"`
	EndPath    string            `json:"end_path"`
	Comparison *ComparisonResult `json:"comparison,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// PairComparison is one unit of a sequential flow analysis.
type PairComparison struct {
	PairIndex  int               `json:"pair_index"`
	StartPath  string            `json:"start_path"`
	EndPath    string            `json:"end_path"`
	Success    bool              `json:"success"`
	Comparison *ComparisonResult `json:"comparison,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// FlowResult carries the N-1 pairwise comparisons of a flow analysis.
// Per-pair failures are recorded against their unit; Success reports
// whether every pair succeeded.
type FlowResult struct {
	Success bool             `json:"success"`
	Pairs   []PairComparison `json:"pairs"`
}

// SceneAnalysis is the schema for a multi-frame narrative analysis,
// enriched client-side with the originating frame list and a creation
// timestamp. Those two fields are what scene identity and the timeline
// cache key on.
type SceneAnalysis struct {
	SceneID       string        `json:"scene_id"`
	Summary       SceneSummary  `json:"summary"`
	KeyEntities   []KeyEntity   `json:"key_entities"`
	StorySignals  StorySignals  `json:"story_signals"`
	PanelGuidance PanelGuidance `json:"panel_guidance"`
	Confidence    float64       `json:"confidence"`
	Frames        []string      `json:"frames,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

type SceneSummary struct {
	WhatHappened string `json:"what_happened"`
	Change       string `json:"change"`
	Implied      string `json:"implied"`
	Uncertainty  string `json:"uncertainty"`
}

type KeyEntity struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // person, object, animal
	Role        string `json:"role"` // protagonist, antagonist, context
	Description string `json:"description"`
}

type StorySignals struct {
	Importance     int            `json:"importance"` // 0-10
	Agency         string         `json:"agency"`
	Irreversible   bool           `json:"irreversible"`
	EmotionalShift EmotionalShift `json:"emotional_shift"`
}

type EmotionalShift struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type PanelGuidance struct {
	PanelCount        int     `json:"panel_count"`
	Panels            []Panel `json:"panels"`
	OmitLiteralAction bool    `json:"omit_literal_action"`
}

// Panel cites the index of the best-representing input frame.
type Panel struct {
	PanelIndex     int    `json:"panel_index"`
	Role           string `json:"role"`
	Description    string `json:"description"`
	BestFrameIndex int    `json:"best_frame_index"`
}
