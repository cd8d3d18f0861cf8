package skills

import (
	"os"
	"strings"

	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// SkillFileName is the name of the markdown file that defines a skill
const SkillFileName = "SKILL.md"

const frontmatterFence = "---"

// ParseFile reads and parses a SKILL.md file
func ParseFile(path string) (*skilltypes.ParsedSkill, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill file")
	}
	return ParseContent(string(content), path)
}

// ParseContent splits the frontmatter from the body, validates the
// frontmatter and returns the parsed skill
func ParseContent(content, filePath string) (*skilltypes.ParsedSkill, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	rawFrontmatter, body, hasFrontmatter := splitFrontmatter(content)

	data := map[string]any{}
	if hasFrontmatter {
		decoded, err := decodeFrontmatter([]byte(content))
		if err != nil {
			return nil, skilltypes.NewValidationErrorf("invalid skill metadata", "frontmatter: "+err.Error())
		}
		data = decoded
	}

	metadata, err := Validate(data)
	if err != nil {
		return nil, err
	}

	return &skilltypes.ParsedSkill{
		Metadata:       *metadata,
		Content:        strings.TrimSpace(body),
		RawFrontmatter: rawFrontmatter,
		FilePath:       filePath,
	}, nil
}

// decodeFrontmatter runs the markdown parser with the meta extension and
// returns the decoded YAML block
func decodeFrontmatter(source []byte) (map[string]any, error) {
	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	pctx := parser.NewContext()
	md.Parser().Parse(text.NewReader(source), parser.WithContext(pctx))

	data, err := meta.TryGet(pctx)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return map[string]any{}, nil
	}

	normalized, _ := normalizeYAML(data).(map[string]any)
	return normalized, nil
}

// splitFrontmatter returns the text between the leading fences and the
// remaining body. Documents without a closed leading fence have no
// frontmatter.
func splitFrontmatter(content string) (string, string, bool) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontmatterFence {
		return "", content, false
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontmatterFence {
			raw := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return raw, body, true
		}
	}

	return "", content, false
}

// SectionAnchors returns the heading anchors of a markdown body in
// document order, as generated by goldmark's auto heading IDs
func SectionAnchors(body string) []string {
	md := goldmark.New(
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)

	source := []byte(body)
	doc := md.Parser().Parse(text.NewReader(source))

	var anchors []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if heading, ok := n.(*ast.Heading); ok {
			if id, found := heading.AttributeString("id"); found {
				if b, ok := id.([]byte); ok {
					anchors = append(anchors, string(b))
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return anchors
}
