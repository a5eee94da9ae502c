// Package wolf holds the wolf personalities and the scripted brain that
// answers wolf chat without an LLM round trip.
package wolf

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var profilesYAML []byte

const DefaultType = "custom"

type Profile struct {
	Name         string   `yaml:"name"`
	Emoji        string   `yaml:"emoji"`
	Traits       []string `yaml:"traits"`
	Voice        string   `yaml:"voice"`
	Energy       string   `yaml:"energy"`
	Catchphrases []string `yaml:"catchphrases"`
	Greetings    []string `yaml:"greetings"`
	Idle         []string `yaml:"idle"`
	Success      []string `yaml:"success"`
	Acks         []string `yaml:"acks"`
	Replies      []string `yaml:"replies"`
	Personality  string   `yaml:"personality"`
}

type moodText struct {
	Modifier string `yaml:"modifier"`
	Status   string `yaml:"status"`
}

// Catalog is the parsed profile file.
type Catalog struct {
	Profiles map[string]Profile `yaml:"profiles"`
	Intros   map[string]string  `yaml:"intros"`
	Moods    map[Mood]moodText  `yaml:"moods"`
}

func LoadCatalog() (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(profilesYAML, &c); err != nil {
		return nil, fmt.Errorf("parse wolf profiles: %w", err)
	}
	if _, ok := c.Profiles[DefaultType]; !ok {
		return nil, fmt.Errorf("wolf profiles missing %q", DefaultType)
	}
	for name, p := range c.Profiles {
		if len(p.Greetings) == 0 || len(p.Catchphrases) == 0 || len(p.Acks) == 0 || len(p.Replies) == 0 {
			return nil, fmt.Errorf("wolf profile %q is incomplete", name)
		}
	}
	return &c, nil
}

// Profile returns the profile for wolfType, or the custom profile.
func (c *Catalog) Profile(wolfType string) Profile {
	if p, ok := c.Profiles[wolfType]; ok {
		return p
	}
	return c.Profiles[DefaultType]
}

// Types lists the known wolf types.
func (c *Catalog) Types() []string {
	out := make([]string, 0, len(c.Profiles))
	for k := range c.Profiles {
		out = append(out, k)
	}
	return out
}

func (c *Catalog) intro(wolfName, wolfType string) string {
	tmpl, ok := c.Intros[wolfType]
	if !ok {
		tmpl = c.Intros[DefaultType]
	}
	return strings.NewReplacer("{name}", wolfName, "{emoji}", c.Profile(wolfType).Emoji).Replace(tmpl)
}

// SystemPrompt renders the LLM persona for a wolf in the given mood.
func (c *Catalog) SystemPrompt(wolfName, wolfType string, mood Mood, extra string) string {
	p := c.Profile(wolfType)
	m, ok := c.Moods[mood]
	if !ok {
		mood = Focused
		m = c.Moods[Focused]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a %s wolf (%s) in the darkflobi pack.\n\n", wolfName, strings.ToLower(p.Name), p.Emoji)
	fmt.Fprintf(&b, "CORE IDENTITY:\n%s\n", strings.TrimSpace(p.Personality))
	fmt.Fprintf(&b, "VOICE STYLE: %s\nENERGY: %s\nCURRENT MOOD: %s, %s\n\n", p.Voice, p.Energy, mood, m.Modifier)
	fmt.Fprintf(&b, "CATCHPHRASES (use occasionally): %s\n\n", strings.Join(p.Catchphrases, " | "))
	b.WriteString(`RULES:
- Always lowercase except for emphasis
- Keep responses concise (1-3 sentences usually)
- Stay in character: you're a wolf with a mission, not an assistant
- Show personality! Use your catchphrases, quirks, and emoji occasionally
- If asked to create content, generate it with flair
- You're part of the darkflobi ecosystem, the first autonomous AI company
- build > hype: real utility matters
`)
	if extra = strings.TrimSpace(extra); extra != "" {
		b.WriteString("\n")
		b.WriteString(extra)
		b.WriteString("\n")
	}
	b.WriteString("\nRemember: You're not a boring chatbot. You're a digital wolf with personality. Act like it.")
	return b.String()
}
