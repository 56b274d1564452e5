package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SchemaError reports model output that does not match the expected shape.
// Raw carries the offending text for diagnosis; nothing is silently coerced.
type SchemaError struct {
	Kind string
	Raw  string
	Err  error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s response: %v (raw: %.200s)", e.Kind, e.Err, e.Raw)
	}
	return fmt.Sprintf("invalid %s response (raw: %.200s)", e.Kind, e.Raw)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// stripFences removes a leading/trailing code-fence marker, with or without
// a language tag. Models frequently wrap otherwise pure JSON this way.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseFrameAnalysis validates raw model output against the single-frame
// schema and normalizes tag/object duplication.
func ParseFrameAnalysis(raw string) (*FrameAnalysis, error) {
	text := stripFences(raw)

	var analysis FrameAnalysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return nil, &SchemaError{Kind: "frame analysis", Raw: raw, Err: err}
	}

	analysis.Tags = dedupeTags(analysis.Tags, analysis.Objects)
	return &analysis, nil
}

// ParseComparison validates raw model output against the pairwise
// comparison schema.
func ParseComparison(raw string) (*ComparisonResult, error) {
	text := stripFences(raw)

	var comparison ComparisonResult
	if err := json.Unmarshal([]byte(text), &comparison); err != nil {
		return nil, &SchemaError{Kind: "comparison", Raw: raw, Err: err}
	}

	if c := comparison.Confidence; c != nil && (*c < 0 || *c > 1) {
		return nil, &SchemaError{Kind: "comparison", Raw: raw, Err: fmt.Errorf("confidence %v out of range [0,1]", *c)}
	}

	return &comparison, nil
}

// ParseSceneAnalysis validates raw model output against the narrative
// schema. Out-of-range numeric fields are rejected; absent optional
// fields pass through.
func ParseSceneAnalysis(raw string) (*SceneAnalysis, error) {
	text := stripFences(raw)

	var scene SceneAnalysis
	if err := json.Unmarshal([]byte(text), &scene); err != nil {
		return nil, &SchemaError{Kind: "scene analysis", Raw: raw, Err: err}
	}

	if scene.Confidence < 0 || scene.Confidence > 1 {
		return nil, &SchemaError{Kind: "scene analysis", Raw: raw, Err: fmt.Errorf("confidence %v out of range [0,1]", scene.Confidence)}
	}
	if imp := scene.StorySignals.Importance; imp < 0 || imp > 10 {
		return nil, &SchemaError{Kind: "scene analysis", Raw: raw, Err: fmt.Errorf("importance %d out of range [0,10]", imp)}
	}

	return &scene, nil
}

// dedupeTags drops any tag whose case-insensitive form exactly matches an
// objects entry. Partial substring matches are preserved.
func dedupeTags(tags, objects []string) []string {
	if len(tags) == 0 {
		return tags
	}

	seen := make(map[string]bool, len(objects))
	for _, obj := range objects {
		seen[strings.ToLower(obj)] = true
	}

	kept := tags[:0]
	for _, tag := range tags {
		if !seen[strings.ToLower(tag)] {
			kept = append(kept, tag)
		}
	}
	return kept
}
