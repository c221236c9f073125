package workspace

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// splitFrontmatter separates a `---\n<yaml>\n---\n<body>` document into its
// YAML frontmatter and markdown body, grounded on the teacher's markdown+
// frontmatter persisted-entity convention (spec §6, "Goal (markdown with
// YAML frontmatter...)").
func splitFrontmatter(doc []byte) (frontmatter, body string, err error) {
	text := string(doc)
	if !strings.HasPrefix(text, "---\n") {
		return "", text, nil
	}
	rest := text[len("---\n"):]
	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return "", "", fmt.Errorf("workspace: unterminated frontmatter block")
	}
	frontmatter = rest[:idx]
	remainder := rest[idx+len("\n---"):]
	body = strings.TrimPrefix(remainder, "\n")
	return frontmatter, body, nil
}

// joinFrontmatter renders a `---\n<yaml>\n---\n<body>` document.
func joinFrontmatter(meta interface{}, body string) ([]byte, error) {
	yamlBytes, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("workspace: marshal frontmatter: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(yamlBytes)
	sb.WriteString("---\n")
	sb.WriteString(body)
	return []byte(sb.String()), nil
}

func unmarshalFrontmatter(doc []byte, meta interface{}) (body string, err error) {
	fm, body, err := splitFrontmatter(doc)
	if err != nil {
		return "", err
	}
	if fm == "" {
		return body, nil
	}
	if err := yaml.Unmarshal([]byte(fm), meta); err != nil {
		return "", fmt.Errorf("workspace: unmarshal frontmatter: %w", err)
	}
	return body, nil
}
