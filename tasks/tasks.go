package tasks

import "encoding/json"

// ---
// QUEUE DEFINITIONS
// ---
const (
	// QueueSceneRender carries generate-and-render jobs.
	QueueSceneRender = "q_scene_render"
)

// ---
// TASK PAYLOADS
// ---

// SceneRenderPayload is the payload for QueueSceneRender.
type SceneRenderPayload struct {
	JobID  string `json:"job_id"`
	Prompt string `json:"prompt"`
}

// Marshal creates a JSON payload for a task.
func Marshal(payload interface{}) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Unmarshal decodes a payload popped from a queue.
func Unmarshal(payload string, v interface{}) error {
	return json.Unmarshal([]byte(payload), v)
}
