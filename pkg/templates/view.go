package templates

import (
	"encoding/json"
	"fmt"
	"html"
)

// blockSpec describes a card section. section names the base section that
// must be present, if any; row is added to height once per item of the
// plugin's list field.
type blockSpec struct {
	kind    string
	plugin  string
	section string
	height  int
	row     int
	list    string
}

type layoutSpec struct {
	width        int
	requiresRepo bool
	blocks       []blockSpec
}

const padding = 16

var baseBlocks = []blockSpec{
	{kind: "header", plugin: "base", section: "header", height: 56},
	{kind: "activity", plugin: "base", section: "activity", height: 28},
	{kind: "community", plugin: "base", section: "community", height: 28},
	{kind: "repositories", plugin: "base", section: "repositories", height: 28},
	{kind: "metadata", plugin: "base", section: "metadata", height: 28},
}

var layouts = map[string]layoutSpec{
	"classic": {
		width: 480,
		blocks: append(append([]blockSpec{}, baseBlocks...),
			blockSpec{kind: "languages", plugin: "languages", height: 28, row: 20, list: "entries"},
			blockSpec{kind: "stars", plugin: "stars", height: 28, row: 36, list: "repositories"},
			blockSpec{kind: "isocalendar", plugin: "isocalendar", height: 112},
			blockSpec{kind: "followup", plugin: "followup", height: 64},
			blockSpec{kind: "lines", plugin: "lines", height: 48},
		),
	},
	"terminal": {
		width: 480,
		blocks: append(append([]blockSpec{}, baseBlocks...),
			blockSpec{kind: "languages", plugin: "languages", height: 20, row: 16, list: "entries"},
			blockSpec{kind: "stars", plugin: "stars", height: 20, row: 16, list: "repositories"},
			blockSpec{kind: "followup", plugin: "followup", height: 52},
		),
	},
	"repository": {
		width:        480,
		requiresRepo: true,
		blocks: []blockSpec{
			{kind: "repository", plugin: "base", height: 84},
			{kind: "languages", plugin: "languages", height: 28, row: 20, list: "entries"},
			{kind: "followup", plugin: "followup", height: 64},
			{kind: "lines", plugin: "lines", height: 48},
		},
	},
}

// Block is one positioned section of a card.
type Block struct {
	Kind string `json:"kind"`
	Y    int    `json:"y"`
}

// Layout positions the blocks whose data is present.
type Layout struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Blocks []Block `json:"blocks"`
}

func (t *Template) layout(data map[string]any) Layout {
	out := Layout{Width: t.width, Blocks: []Block{}}
	y := padding
	for _, spec := range t.blocks {
		payload, ok := data[spec.plugin].(map[string]any)
		if !ok {
			continue
		}
		if spec.section != "" {
			if _, ok := payload[spec.section].(map[string]any); !ok {
				continue
			}
		}
		if spec.kind == "repository" {
			if _, ok := payload["repository"].(map[string]any); !ok {
				continue
			}
		}
		height := spec.height
		if spec.list != "" {
			if items, ok := payload[spec.list].([]any); ok {
				height += spec.row * len(items)
			}
		}
		out.Blocks = append(out.Blocks, Block{Kind: spec.kind, Y: y})
		y += height
	}
	out.Height = y + padding
	return out
}

// sanitize turns plugin data into plain maps and strips markup from every
// string. The template engine escapes output on its own, so entities are
// decoded back after sanitising.
func (t *Template) sanitize(plugins map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(plugins))
	if len(plugins) == 0 {
		return out, nil
	}
	payload, err := json.Marshal(plugins)
	if err != nil {
		return nil, fmt.Errorf("encode plugin data: %w", err)
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode plugin data: %w", err)
	}
	for key, value := range out {
		out[key] = t.cleanValue(value)
	}
	return out, nil
}

func (t *Template) cleanValue(value any) any {
	switch v := value.(type) {
	case string:
		return t.clean(v)
	case map[string]any:
		for key, item := range v {
			v[key] = t.cleanValue(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = t.cleanValue(item)
		}
		return v
	default:
		return value
	}
}

func (t *Template) clean(s string) string {
	return html.UnescapeString(t.policy.Sanitize(s))
}
