package mcp

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jingkaihe/skillli/pkg/skills"
	"github.com/mark3labs/mcp-go/mcp"
)

func arguments(req mcp.CallToolRequest) map[string]any {
	args, _ := any(req.Params.Arguments).(map[string]any)
	return args
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

// numberArg accepts JSON numbers and numeric strings
func numberArg(args map[string]any, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return 0
}

func boolArg(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}

// stringsArg accepts an array of strings or a comma separated string
func stringsArg(args map[string]any, key string) []string {
	var out []string
	switch v := args[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		for _, s := range v {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}

// skillFilePath accepts either a skill directory or its SKILL.md
func skillFilePath(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return filepath.Join(path, skills.SkillFileName)
	}
	return path
}
