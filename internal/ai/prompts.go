package ai

const framePrompt = `Analyze this video frame and respond with JSON only, using exactly this shape:
{
  "summary": "one or two sentences describing the frame",
  "objects": ["notable objects, in order of prominence"],
  "tags": ["short searchable keywords"],
  "scene_type": "free-text classification, e.g. interior dialogue, outdoor action",
  "visual_elements": {
    "dominant_colors": ["color names"],
    "lighting": "free-text lighting description"
  }
}
Do not include any text outside the JSON object.`

const comparePrompt = `These two video frames are labeled "start" and "end". Compare them and respond with JSON only, using exactly this shape:
{
  "action_description": "what action occurred between the frames",
  "object_flow": "how objects moved or changed between the frames",
  "differences": ["each notable difference"],
  "confidence": 0.0
}
Confidence is a number between 0 and 1. Do not include any text outside the JSON object.`

const narrativeSystemPrompt = `You are a visual storytelling analyst. You receive an ordered sequence of video frames from a single scene. Identify the narrative beats, key entities, and emotional signal, and suggest a comic-panel layout where each panel cites the index of the input frame that best represents it. Frame indices are zero-based in the order the images appear. Respond with JSON only.`

const narrativeUserPrompt = `Analyze this ordered frame sequence and respond with JSON only, using exactly this shape:
{
  "summary": {
    "what_happened": "the concrete events of the scene",
    "change": "what changed from the first frame to the last",
    "implied": "what is implied but not shown",
    "uncertainty": "what cannot be determined from these frames"
  },
  "key_entities": [
    {"name": "entity name", "type": "person|object|animal", "role": "protagonist|antagonist|context", "description": "brief description"}
  ],
  "story_signals": {
    "importance": 5,
    "agency": "who or what drives the events",
    "irreversible": false,
    "emotional_shift": {"from": "opening mood", "to": "closing mood"}
  },
  "panel_guidance": {
    "panel_count": 3,
    "panels": [
      {"panel_index": 0, "role": "establishing|beat|climax|resolution", "description": "what the panel shows", "best_frame_index": 0}
    ],
    "omit_literal_action": false
  },
  "confidence": 0.0
}
Importance is 0-10; confidence is 0-1. Do not include any text outside the JSON object.`
