package notion

import (
	"context"
	"fmt"
	"strings"

	"github.com/ohler55/ojg/jp"
)

// BlockSource lists the children of a block.
type BlockSource interface {
	BlockChildren(ctx context.Context, id string) ([]map[string]any, error)
}

// Renderer converts a page's block tree into markdown.
type Renderer struct {
	Blocks BlockSource
	// MaxDepth bounds recursion into nested blocks; 0 means 8.
	MaxDepth int
}

var (
	fileURLPath     = jp.C("file").C("url")
	externalURLPath = jp.C("external").C("url")
)

// Render returns the markdown body of page id.
func (r *Renderer) Render(ctx context.Context, id string) (string, error) {
	var b strings.Builder
	if err := r.renderChildren(ctx, &b, id, 0); err != nil {
		return "", err
	}
	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

func (r *Renderer) maxDepth() int {
	if r.MaxDepth <= 0 {
		return 8
	}
	return r.MaxDepth
}

func (r *Renderer) renderChildren(ctx context.Context, b *strings.Builder, id string, depth int) error {
	blocks, err := r.Blocks.BlockChildren(ctx, id)
	if err != nil {
		return fmt.Errorf("list children of %s: %w", id, err)
	}

	indent := strings.Repeat("    ", depth)
	number := 0
	for i, block := range blocks {
		typ, _ := block["type"].(string)
		if typ == "numbered_list_item" {
			number++
		} else {
			number = 0
		}

		line, err := r.renderBlock(ctx, block, typ, number)
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}
		for j, l := range strings.Split(line, "\n") {
			if j > 0 {
				b.WriteByte('\n')
			}
			if l != "" {
				b.WriteString(indent)
			}
			b.WriteString(l)
		}
		b.WriteByte('\n')

		if hasChildren(block) && depth+1 < r.maxDepth() && typ != "table" {
			childID, _ := block["id"].(string)
			if isNestable(typ) {
				if err := r.renderChildren(ctx, b, childID, depth+1); err != nil {
					return err
				}
			} else {
				b.WriteByte('\n')
				if err := r.renderChildren(ctx, b, childID, depth); err != nil {
					return err
				}
			}
		}

		if i+1 < len(blocks) && !(isListItem(typ) && isListItem(blockType(blocks[i+1]))) {
			b.WriteByte('\n')
		}
	}
	return nil
}

func (r *Renderer) renderBlock(ctx context.Context, block map[string]any, typ string, number int) (string, error) {
	body, _ := block[typ].(map[string]any)
	text := richText(body["rich_text"])

	switch typ {
	case "paragraph":
		return text, nil
	case "heading_1":
		return "# " + text, nil
	case "heading_2":
		return "## " + text, nil
	case "heading_3":
		return "### " + text, nil
	case "bulleted_list_item":
		return "- " + text, nil
	case "numbered_list_item":
		return fmt.Sprintf("%d. %s", number, text), nil
	case "to_do":
		if checked, _ := body["checked"].(bool); checked {
			return "- [x] " + text, nil
		}
		return "- [ ] " + text, nil
	case "toggle":
		return "- " + text, nil
	case "quote":
		return "> " + strings.ReplaceAll(text, "\n", "\n> "), nil
	case "callout":
		icon := ""
		if emoji, ok := body["icon"].(map[string]any); ok {
			if e, _ := emoji["emoji"].(string); e != "" {
				icon = e + " "
			}
		}
		return "> " + icon + strings.ReplaceAll(text, "\n", "\n> "), nil
	case "code":
		lang, _ := body["language"].(string)
		if lang == "plain text" {
			lang = "text"
		}
		return "```" + lang + "\n" + plainText(body["rich_text"]) + "\n```", nil
	case "equation":
		expr, _ := body["expression"].(string)
		return "$$\n" + expr + "\n$$", nil
	case "divider":
		return "---", nil
	case "image":
		caption := plainText(body["caption"])
		if caption == "" {
			caption = "image"
		}
		return fmt.Sprintf("![%s](%s)", caption, fileURL(body)), nil
	case "pdf", "file", "video", "audio":
		name := plainText(body["caption"])
		if name == "" {
			name, _ = body["name"].(string)
		}
		if name == "" {
			name = typ
		}
		return fmt.Sprintf("[%s](%s)", name, fileURL(body)), nil
	case "bookmark", "embed", "link_preview":
		u, _ := body["url"].(string)
		if u == "" {
			return "", nil
		}
		caption := plainText(body["caption"])
		if caption == "" {
			caption = u
		}
		return fmt.Sprintf("[%s](%s)", caption, u), nil
	case "child_page":
		title, _ := body["title"].(string)
		return "**" + title + "**", nil
	case "table":
		id, _ := block["id"].(string)
		return r.renderTable(ctx, id, body)
	default:
		return text, nil
	}
}

func (r *Renderer) renderTable(ctx context.Context, id string, body map[string]any) (string, error) {
	rows, err := r.Blocks.BlockChildren(ctx, id)
	if err != nil {
		return "", fmt.Errorf("list table rows of %s: %w", id, err)
	}
	width := 0
	if w, ok := body["table_width"].(int64); ok {
		width = int(w)
	} else if w, ok := body["table_width"].(float64); ok {
		width = int(w)
	}

	var lines []string
	for i, row := range rows {
		cells, _ := jp.C("table_row").C("cells").First(row).([]any)
		parts := make([]string, 0, len(cells))
		for _, c := range cells {
			parts = append(parts, strings.ReplaceAll(richText(c), "|", `\|`))
		}
		if len(parts) > width {
			width = len(parts)
		}
		lines = append(lines, "| "+strings.Join(parts, " | ")+" |")
		if i == 0 {
			sep := make([]string, max(width, 1))
			for j := range sep {
				sep[j] = "---"
			}
			lines = append(lines, "| "+strings.Join(sep, " | ")+" |")
		}
	}
	return strings.Join(lines, "\n"), nil
}

func fileURL(body map[string]any) string {
	for _, p := range []jp.Expr{fileURLPath, externalURLPath} {
		if u, ok := p.First(body).(string); ok && u != "" {
			return u
		}
	}
	return ""
}

// richText renders a rich-text array with annotations and links.
func richText(v any) string {
	items, _ := v.([]any)
	var b strings.Builder
	for _, it := range items {
		item, ok := it.(map[string]any)
		if !ok {
			continue
		}
		text, _ := item["plain_text"].(string)
		if typ, _ := item["type"].(string); typ == "equation" {
			b.WriteString("$" + text + "$")
			continue
		}
		b.WriteString(annotate(text, item))
	}
	return b.String()
}

func annotate(text string, item map[string]any) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	lead := text[:len(text)-len(strings.TrimLeft(text, " "))]
	trail := text[len(strings.TrimRight(text, " ")):]
	core := strings.Trim(text, " ")

	ann, _ := item["annotations"].(map[string]any)
	if on(ann, "code") {
		core = "`" + core + "`"
	}
	if on(ann, "bold") {
		core = "**" + core + "**"
	}
	if on(ann, "italic") {
		core = "_" + core + "_"
	}
	if on(ann, "strikethrough") {
		core = "~~" + core + "~~"
	}
	if href, _ := item["href"].(string); href != "" {
		core = "[" + core + "](" + href + ")"
	}
	return lead + core + trail
}

func on(ann map[string]any, key string) bool {
	v, _ := ann[key].(bool)
	return v
}

func plainText(v any) string {
	items, _ := v.([]any)
	var b strings.Builder
	for _, it := range items {
		if item, ok := it.(map[string]any); ok {
			s, _ := item["plain_text"].(string)
			b.WriteString(s)
		}
	}
	return b.String()
}

func hasChildren(block map[string]any) bool {
	v, _ := block["has_children"].(bool)
	return v
}

func blockType(block map[string]any) string {
	t, _ := block["type"].(string)
	return t
}

func isListItem(typ string) bool {
	switch typ {
	case "bulleted_list_item", "numbered_list_item", "to_do", "toggle":
		return true
	}
	return false
}

func isNestable(typ string) bool {
	return isListItem(typ)
}
