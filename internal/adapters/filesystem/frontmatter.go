package filesystem

import (
	"bufio"
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"

	"tessera/internal/domain"
)

// ParseFrontmatter extracts the YAML block between the leading --- delimiters.
// A document without frontmatter has empty metadata.
func ParseFrontmatter(content []byte) (domain.Metadata, error) {
	meta := domain.Metadata{}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() || strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff")) != "---" {
		return meta, nil
	}

	var lines []string
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if t := strings.TrimSpace(line); t == "---" || t == "..." {
			closed = true
			break
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !closed || len(lines) == 0 {
		return meta, nil
	}

	if err := yaml.Unmarshal([]byte(strings.Join(lines, "\n")), &meta); err != nil {
		return nil, err
	}
	if meta == nil {
		meta = domain.Metadata{}
	}
	return meta, nil
}
