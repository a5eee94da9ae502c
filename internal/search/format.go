package search

import (
	"fmt"
	"strings"
)

const snippetLimit = 150

var intros = map[string]string{
	"scout":     "👁️ **intel gathered on \"%s\":**\n\n",
	"research":  "📚 **research findings for \"%s\":**\n\n",
	"builder":   "🔧 **found this on \"%s\":**\n\n",
	"assistant": "📋 **search results for \"%s\":**\n\n",
	"custom":    "🐺 **found this on \"%s\":**\n\n",
}

var outros = map[string]string{
	"scout":     "*tracking complete. want me to dig deeper on any of these?*",
	"research":  "*initial findings compiled. shall i analyze any of these further?*",
	"builder":   "*found some stuff. anything useful here?*",
	"assistant": "*search complete. need more details on any result?*",
	"custom":    "*that's what i found. want me to search for something else?*",
}

// Format renders up to five results in the voice of wolfType.
func Format(results []Result, query, wolfType string) string {
	if len(results) == 0 {
		return fmt.Sprintf("searched for \"%s\" but found nothing useful. try different keywords?", query)
	}

	intro, ok := intros[wolfType]
	if !ok {
		intro = intros["custom"]
	}
	outro, ok := outros[wolfType]
	if !ok {
		outro = outros["custom"]
	}

	var b strings.Builder
	fmt.Fprintf(&b, intro, query)
	for i, r := range results {
		if i == DefaultCount {
			break
		}
		fmt.Fprintf(&b, "**%d. %s**\n", i+1, r.Title)
		if r.Snippet != "" {
			b.WriteString(truncate(r.Snippet, snippetLimit))
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "→ %s\n\n", r.URL)
	}
	b.WriteString(outro)
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
