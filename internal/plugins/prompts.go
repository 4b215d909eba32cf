package plugins

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/Lang-lll/lll-cognitive-core/internal/cognitive"
	"github.com/Lang-lll/lll-cognitive-core/internal/memory"
)

var promptFuncs = template.FuncMap{
	"events":   formatEvents,
	"goals":    formatGoals,
	"memories": memory.FormatRecords,
	"today":    func() string { return time.Now().Format(memory.DateLayout) },
}

func formatEvents(events []cognitive.CognitiveEvent) string {
	if len(events) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, ev := range events {
		content := ev.Raw.Data
		if ev.Understood != nil && ev.Understood.MainContent != "" {
			content = ev.Understood.MainContent
		}
		fmt.Fprintf(&b, "- id=%s [%s] %s/%s: %s\n",
			ev.ID, ev.Timestamp.Local().Format("15:04:05"), ev.Source, ev.Modality, content)
	}
	return b.String()
}

func formatGoals(goals []cognitive.Goal) string {
	if len(goals) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, g := range goals {
		fmt.Fprintf(&b, "- [p%d] %s", g.Priority, g.Description)
		if g.Status != "" {
			fmt.Fprintf(&b, " (%s)", g.Status)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

const understandSystem = `You are the perception layer of an always-on agent.
Interpret the incoming event and answer with a single JSON object:
{"event_type": string, "main_content": string, "current_situation": string,
 "event_entity": string, "key_entities": [string], "importance_score": 0-100,
 "response_priority": "low"|"medium"|"high", "expected_response": string,
 "memory_query_plan": {"query_type": "none"|"long_term_fresh"|"long_term_cached",
   "time_range": ["YYYY-MM-DD","YYYY-MM-DD"], "query_triggers": [string],
   "associations": [string], "importance_min": number}}
Answer null if the event carries nothing worth keeping.`

const understandTask = `Today: {{today}}
Event ({{.Event.Type}} from {{.Event.Source}} at {{.Event.Timestamp.Format "15:04:05"}}):
{{.Event.Data}}

Recent events:
{{events .RecentEvents}}
Active goals:
{{goals .ActiveGoals}}`

const recallSystem = `You are the associative recall of an always-on agent.
Condense the memories into the episode most relevant to the situation.
Answer with a single JSON object:
{"recalled_episode": string, "current_situation": string}`

const recallTask = `Situation: {{.Situation}}
{{if .TooMany}}Only the most recent memories are shown; older ones were left out.
{{end}}
{{memories .Memories}}
Recent events:
{{events .RecentEvents}}
Active goals:
{{goals .ActiveGoals}}`

const behaviorSystem = `You decide what an always-on agent does next.
Answer with a single JSON object:
{"current_situation": string, "plan": [{"type": "speech-out"|"motion"|string,
 "data": string, "target": string, "params": object}]}
Use an empty plan when no action is needed.`

const behaviorTask = `Situation: {{.Situation}}
{{with .RecallText}}Recalled episode: {{.}}
{{end}}{{memories .Memories}}
Recent events:
{{events .RecentEvents}}
Active goals:
{{goals .ActiveGoals}}`

const extractionSystem = `You consolidate an agent's day into long-term memories.
Pick the events worth remembering and answer with a single JSON object:
{"memories": [{"id": event id, "content": string, "importance": 0-100,
 "keywords": [string], "associations": [string]}]}
Use the event ids exactly as given.`

const extractionTask = `Situation: {{.Situation}}

Events:
{{events .RecentEvents}}
Active goals:
{{goals .ActiveGoals}}`
