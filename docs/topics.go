// Package docs holds the documentation topics of the fin tool.
package docs

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
)

//go:embed *.md
var docs embed.FS

// Readme is the topic listing every other topic.
const Readme = "readme"

// Topic returns the markdown content of a topic.
func Topic(name string) (string, error) {
	content, err := docs.ReadFile(name + ".md")
	if err != nil {
		return "", fmt.Errorf("topic %q not found, see 'fin topic': %w", name, err)
	}
	return string(content), nil
}

// Topics returns the content of several topics, concatenated. "*" stands for
// every topic but the readme.
func Topics(names ...string) (string, error) {
	var b strings.Builder
	for _, name := range names {
		expanded := []string{name}
		if name == "*" {
			expanded = List()
		}
		for _, t := range expanded {
			content, err := Topic(t)
			if err != nil {
				return "", err
			}
			b.WriteString(content)
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// List returns the names of the topics but the readme, sorted.
func List() []string {
	var topics []string
	entries, _ := fs.ReadDir(docs, ".")
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		if !e.IsDir() && name != Readme {
			topics = append(topics, name)
		}
	}
	slices.Sort(topics)
	return topics
}
