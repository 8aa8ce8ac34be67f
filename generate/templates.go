package generate

import "text/template"

// Prompt templates per content branch. The writer fills these from the
// merged research data; the model writes the actual script.

var gamePromptTmpl = template.Must(template.New("game").Parse(
	`Write a {{.DurationMinutes}}-minute YouTube {{.FormatLabel}} script about {{.GameName}}, in {{.LanguageLabel}}.

Game facts (use them, do not invent others):
- Name: {{.GameName}}
{{- if .Developer}}
- Developer: {{.Developer}}{{end}}
{{- if .Publisher}}
- Publisher: {{.Publisher}}{{end}}
{{- if .Platforms}}
- Platforms: {{.Platforms}}{{end}}
{{- if .Genre}}
- Genre: {{.Genre}}{{end}}
{{- if .ReleaseDate}}
- Release date: {{.ReleaseDate}}{{end}}
{{- if .Description}}
- Summary: {{.Description}}{{end}}
{{- if .ReviewScores}}

Critic scores: {{.ReviewScores}}{{end}}
{{- if .MediaTitles}}

Available footage to reference: {{.MediaTitles}}{{end}}

Structure the script in timestamped sections ([MM:SS-MM:SS] prefix per section):
hook, overview, gameplay, {{if .ReviewScores}}critic reception, {{end}}conclusion with a call to action.
{{- if .Feedback}}

A previous draft was rejected. Address every point:
{{- range .Feedback}}
- {{.}}{{end}}
{{- end}}`))

var eventPromptTmpl = template.Must(template.New("event").Parse(
	`Write a {{.DurationMinutes}}-minute YouTube event summary script about "{{.EventTitle}}", in {{.LanguageLabel}}.

Event facts (use them, do not invent others):
{{- if .AnnouncedGames}}
- Announced games: {{.AnnouncedGames}}{{end}}
{{- if .Highlights}}
- Highlights: {{.Highlights}}{{end}}
{{- if .Timestamps}}
- Source video chapters: {{.Timestamps}}{{end}}

Structure the script in timestamped sections ([MM:SS-MM:SS] prefix per section):
intro, announcements, highlights, conclusion asking viewers which reveal excited them most.
{{- if .Feedback}}

A previous draft was rejected. Address every point:
{{- range .Feedback}}
- {{.}}{{end}}
{{- end}}`))

const writerSystemPrompt = `You are a script writer for gaming YouTube videos.
Respond with a single JSON object and nothing else:

{
  "title": string,               // video title
  "content": string,             // full script, timestamped sections
  "timestamps": {string: string} // section name -> "MM:SS-MM:SS"
}

Stay strictly inside the provided facts. Match the requested language exactly.`

const enhancerSystemPrompt = `You reformat YouTube scripts. Fix section structure, timestamp
ranges and formatting only. Never add, remove or reword the substance.
Respond with a single JSON object: {"title": string, "content": string, "timestamps": {string: string}}.`

const coachSystemPrompt = `You are a YouTube growth coach. Given a video script, propose 3
thumbnail concepts as a JSON array and nothing else:

[{
  "style": string,        // e.g. "Emotional Reaction", "Game Visual Showcase", "Curiosity Hook"
  "prompt": string,       // full image-generation prompt for the thumbnail
  "description": string,  // why this works for the video
  "target_ctr": string,   // expected click-through range, e.g. "6-10%"
  "design_notes": [string]
}]`
