package openai

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a task triage assistant for a content team's task manager. ` +
	`Classify the task into one of these categories: SOCIAL_MEDIA_POST, VIDEO_CONTENT, GENERAL. ` +
	`Optionally suggest up to five concrete subtasks, each with a phase_hint naming the ` +
	`workflow phase it belongs to (for example "Content Creation" or "Review"). ` +
	`Always respond with a single JSON object of the form ` +
	`{"task_type": "...", "subtasks": [{"title": "...", "phase_hint": "..."}]}.`

// buildPrompt renders the user message for one classification request.
func buildPrompt(title, description string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task title: %s\n", title)
	if description != "" {
		fmt.Fprintf(&b, "Task description: %s\n", description)
	}
	b.WriteString("Classify this task and suggest subtasks.")
	return b.String()
}
