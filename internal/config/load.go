package config

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	maxRemoteMsgBytes = 2 << 20
	remoteMsgTimeout  = 10 * time.Second
	frontmatterFence  = "---"
)

// LoadMsg resolves one instruction entry: raw text, an http(s) URL or a
// file:// path. Markdown files lose their YAML frontmatter.
func LoadMsg(msg string) (string, error) {
	switch {
	case strings.HasPrefix(msg, "https://"), strings.HasPrefix(msg, "http://"):
		return fetchMsg(msg)
	case strings.HasPrefix(msg, "file://"):
		return readMsgFile(strings.TrimPrefix(msg, "file://"))
	default:
		return msg, nil
	}
}

func fetchMsg(url string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), remoteMsgTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("fetch instructions: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch instructions: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return "", fmt.Errorf("fetch instructions: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	// One extra byte tells a full body from a truncated one.
	bts, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteMsgBytes+1))
	if err != nil {
		return "", fmt.Errorf("read instructions: %w", err)
	}
	if len(bts) > maxRemoteMsgBytes {
		return "", fmt.Errorf("read instructions: response too large (>%d bytes)", maxRemoteMsgBytes)
	}
	return string(bts), nil
}

func readMsgFile(path string) (string, error) {
	path = expandHome(path)
	bts, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read instructions file: %w", err)
	}
	if !isMarkdown(path) {
		return string(bts), nil
	}
	_, body, err := splitFrontmatter(string(bts))
	return body, err
}

func isMarkdown(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".md")
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

// splitFrontmatter separates a leading block fenced by --- lines from the
// markdown body. front is empty when the content has no frontmatter. The
// block must be valid YAML.
func splitFrontmatter(content string) (front, body string, err error) {
	lines := strings.Split(content, "\n")
	if strings.TrimSpace(lines[0]) != frontmatterFence {
		return "", content, nil
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != frontmatterFence {
			continue
		}
		front = strings.Join(lines[1:i], "\n")
		var fields map[string]any
		if err := yaml.Unmarshal([]byte(front), &fields); err != nil {
			return "", "", fmt.Errorf("invalid markdown frontmatter: %w", err)
		}
		body = strings.TrimLeft(strings.Join(lines[i+1:], "\n"), "\r\n")
		return front, body, nil
	}
	return "", "", fmt.Errorf("invalid markdown frontmatter: missing closing delimiter")
}

// markdownAgent reads an agent file written as markdown. The frontmatter may
// set any agent field; the body becomes the instructions unless the
// frontmatter lists its own.
func markdownAgent(path string) (Agent, error) {
	bts, err := os.ReadFile(path)
	if err != nil {
		return Agent{}, fmt.Errorf("read agent file %q: %w", path, err)
	}
	front, _, err := splitFrontmatter(string(bts))
	if err != nil {
		return Agent{}, err
	}
	var agent Agent
	if err := yaml.Unmarshal([]byte(front), &agent); err != nil {
		return Agent{}, fmt.Errorf("agent frontmatter: %w", err)
	}
	if len(agent.Instructions) == 0 {
		agent.Instructions = []string{"file://" + path}
	}
	return agent, nil
}
