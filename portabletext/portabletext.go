// Package portabletext renders Portable Text block content as HTML.
//
// Rendering is driven by Serializers, a set of dispatch tables keyed by
// block type, block style and mark. Callers override single entries and
// keep the defaults for everything else.
package portabletext

import (
	"context"
	"html"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/a-h/templ"
)

// Span is an inline run of text with the marks applied to it.
type Span struct {
	Type  string   `json:"_type" yaml:"_type"`
	Key   string   `json:"_key,omitempty" yaml:"_key,omitempty"`
	Text  string   `json:"text" yaml:"text"`
	Marks []string `json:"marks,omitempty" yaml:"marks,omitempty"`
}

// MarkDef describes an annotation mark such as a link. Spans reference it
// by Key.
type MarkDef struct {
	Key  string `json:"_key" yaml:"_key"`
	Type string `json:"_type" yaml:"_type"`
	Href string `json:"href,omitempty" yaml:"href,omitempty"`
}

// AssetRef points at an uploaded asset.
type AssetRef struct {
	Ref string `json:"_ref" yaml:"_ref"`
}

// Block is a top level node. Text blocks have Type "block"; anything else
// (images, embeds) is dispatched through Serializers.Types.
type Block struct {
	Type     string    `json:"_type" yaml:"_type"`
	Key      string    `json:"_key,omitempty" yaml:"_key,omitempty"`
	Style    string    `json:"style,omitempty" yaml:"style,omitempty"`
	ListItem string    `json:"listItem,omitempty" yaml:"listItem,omitempty"`
	Level    int       `json:"level,omitempty" yaml:"level,omitempty"`
	Children []Span    `json:"children,omitempty" yaml:"children,omitempty"`
	MarkDefs []MarkDef `json:"markDefs,omitempty" yaml:"markDefs,omitempty"`
	Asset    *AssetRef `json:"asset,omitempty" yaml:"asset,omitempty"`
	Alt      string    `json:"alt,omitempty" yaml:"alt,omitempty"`
}

// Blocks is a document body.
type Blocks []Block

// StyleFunc renders a text block whose inline children are already rendered.
type StyleFunc func(b Block, children string) string

// MarkFunc wraps rendered children in a mark. def is the zero value for
// decorators like strong or em.
type MarkFunc func(def MarkDef, children string) string

// TypeFunc renders a non-text block.
type TypeFunc func(r *Renderer, b Block) string

// ListFunc wraps the rendered items of one list. kind is the block's
// listItem value ("bullet", "number").
type ListFunc func(kind string, level int, items string) string

// Serializers is the dispatch table used by a Renderer.
type Serializers struct {
	Types    map[string]TypeFunc
	Styles   map[string]StyleFunc
	Marks    map[string]MarkFunc
	List     ListFunc
	ListItem StyleFunc
}

// Merge returns a copy of s with every non-nil entry of o applied on top.
func (s Serializers) Merge(o Serializers) Serializers {
	out := Serializers{
		Types:    make(map[string]TypeFunc, len(s.Types)+len(o.Types)),
		Styles:   make(map[string]StyleFunc, len(s.Styles)+len(o.Styles)),
		Marks:    make(map[string]MarkFunc, len(s.Marks)+len(o.Marks)),
		List:     s.List,
		ListItem: s.ListItem,
	}
	for k, v := range s.Types {
		out.Types[k] = v
	}
	for k, v := range o.Types {
		out.Types[k] = v
	}
	for k, v := range s.Styles {
		out.Styles[k] = v
	}
	for k, v := range o.Styles {
		out.Styles[k] = v
	}
	for k, v := range s.Marks {
		out.Marks[k] = v
	}
	for k, v := range o.Marks {
		out.Marks[k] = v
	}
	if o.List != nil {
		out.List = o.List
	}
	if o.ListItem != nil {
		out.ListItem = o.ListItem
	}
	return out
}

func wrap(tag string) StyleFunc {
	return func(_ Block, children string) string {
		return "<" + tag + ">" + children + "</" + tag + ">"
	}
}

func wrapMark(tag string) MarkFunc {
	return func(_ MarkDef, children string) string {
		return "<" + tag + ">" + children + "</" + tag + ">"
	}
}

// Default returns the stock serializers: paragraphs, headings, blockquotes,
// bullet and numbered lists, the common decorators, links and images.
func Default() Serializers {
	return Serializers{
		Types: map[string]TypeFunc{
			"image": renderImage,
		},
		Styles: map[string]StyleFunc{
			"normal":     wrap("p"),
			"h1":         wrap("h1"),
			"h2":         wrap("h2"),
			"h3":         wrap("h3"),
			"h4":         wrap("h4"),
			"h5":         wrap("h5"),
			"h6":         wrap("h6"),
			"blockquote": wrap("blockquote"),
		},
		Marks: map[string]MarkFunc{
			"strong":         wrapMark("strong"),
			"em":             wrapMark("em"),
			"code":           wrapMark("code"),
			"underline":      wrapMark("u"),
			"strike-through": wrapMark("del"),
			"link":           Link(""),
		},
		List: func(kind string, _ int, items string) string {
			if kind == "number" {
				return "<ol>" + items + "</ol>"
			}
			return "<ul>" + items + "</ul>"
		},
		ListItem: wrap("li"),
	}
}

// Link returns a link mark renderer. The link keeps its rendered children;
// unsafe hrefs drop the anchor and keep the text.
func Link(class string) MarkFunc {
	return func(def MarkDef, children string) string {
		href := SafeURL(def.Href)
		if href == "" {
			return children
		}
		attrs := `href="` + href + `"`
		if class != "" {
			attrs += ` class="` + html.EscapeString(class) + `"`
		}
		if u, err := url.Parse(def.Href); err == nil && u.IsAbs() {
			attrs += ` target="_blank" rel="noopener noreferrer"`
		}
		return "<a " + attrs + ">" + children + "</a>"
	}
}

func renderImage(r *Renderer, b Block) string {
	if r.ImageURL == nil || b.Asset == nil || b.Asset.Ref == "" {
		return ""
	}
	src := SafeURL(r.ImageURL(b.Asset.Ref))
	if src == "" {
		return ""
	}
	return `<figure><img src="` + src + `" alt="` + html.EscapeString(b.Alt) + `" loading="lazy" decoding="async"/></figure>`
}

// Renderer turns Blocks into HTML.
type Renderer struct {
	Serializers Serializers
	// ImageURL resolves an asset reference for image blocks. Image blocks
	// are skipped when nil.
	ImageURL func(ref string) string
}

// New returns a Renderer using the defaults merged with overrides.
func New(overrides Serializers, imageURL func(ref string) string) *Renderer {
	return &Renderer{Serializers: Default().Merge(overrides), ImageURL: imageURL}
}

// Component returns a templ.Component that renders blocks.
func (r *Renderer) Component(blocks Blocks) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, r.HTML(blocks))
		return err
	})
}

// HTML renders blocks. Unknown block types render nothing, unknown styles
// render as paragraphs and unknown marks render their children.
func (r *Renderer) HTML(blocks Blocks) string {
	var sb strings.Builder
	for i := 0; i < len(blocks); {
		b := blocks[i]
		if b.ListItem != "" {
			out, next := r.renderList(blocks, i, listLevel(b))
			sb.WriteString(out)
			i = next
			continue
		}
		sb.WriteString(r.renderBlock(b))
		i++
	}
	return sb.String()
}

func listLevel(b Block) int {
	if b.Level < 1 {
		return 1
	}
	return b.Level
}

// renderList renders consecutive list items of one kind starting at i on
// level. Deeper items become a nested list inside the preceding item.
func (r *Renderer) renderList(blocks Blocks, i, level int) (string, int) {
	kind := blocks[i].ListItem
	var items []string
	var itemBlocks []Block
	j := i
	for j < len(blocks) {
		b := blocks[j]
		if b.ListItem == "" {
			break
		}
		lvl := listLevel(b)
		if lvl < level {
			break
		}
		if lvl > level {
			nested, next := r.renderList(blocks, j, lvl)
			if len(items) == 0 {
				items = append(items, "")
				itemBlocks = append(itemBlocks, b)
			}
			items[len(items)-1] += nested
			j = next
			continue
		}
		if b.ListItem != kind {
			break
		}
		items = append(items, r.inline(b))
		itemBlocks = append(itemBlocks, b)
		j++
	}

	var sb strings.Builder
	for k, content := range items {
		sb.WriteString(r.Serializers.ListItem(itemBlocks[k], content))
	}
	return r.Serializers.List(kind, level, sb.String()), j
}

func (r *Renderer) renderBlock(b Block) string {
	if b.Type != "" && b.Type != "block" {
		if fn, ok := r.Serializers.Types[b.Type]; ok {
			return fn(r, b)
		}
		return ""
	}
	style := b.Style
	if style == "" {
		style = "normal"
	}
	fn, ok := r.Serializers.Styles[style]
	if !ok {
		fn = r.Serializers.Styles["normal"]
	}
	if fn == nil {
		fn = wrap("p")
	}
	return fn(b, r.inline(b))
}

type markNode struct {
	mark     string
	text     string
	isText   bool
	children []*markNode
}

// inline renders the spans of b. Adjacent spans sharing a mark are grouped
// under one element so a link spanning several styled runs stays one link.
func (r *Renderer) inline(b Block) string {
	root := &markNode{}
	stack := []*markNode{root}
	for i, span := range b.Children {
		marks := sortMarks(b.Children, i)

		k := 1
		for ; k < len(stack); k++ {
			if !containsMark(marks, stack[k].mark) {
				break
			}
		}
		stack = stack[:k]

		for _, m := range marks {
			if stackHas(stack, m) {
				continue
			}
			n := &markNode{mark: m}
			top := stack[len(stack)-1]
			top.children = append(top.children, n)
			stack = append(stack, n)
		}
		top := stack[len(stack)-1]
		top.children = append(top.children, &markNode{isText: true, text: span.Text})
	}

	defs := make(map[string]MarkDef, len(b.MarkDefs))
	for _, d := range b.MarkDefs {
		defs[d.Key] = d
	}
	return r.renderNodes(root.children, defs)
}

func (r *Renderer) renderNodes(nodes []*markNode, defs map[string]MarkDef) string {
	var sb strings.Builder
	for _, n := range nodes {
		if n.isText {
			sb.WriteString(strings.ReplaceAll(html.EscapeString(n.text), "\n", "<br/>"))
			continue
		}
		children := r.renderNodes(n.children, defs)
		markType := n.mark
		def, ok := defs[n.mark]
		if ok {
			markType = def.Type
		}
		fn, ok := r.Serializers.Marks[markType]
		if !ok {
			sb.WriteString(children)
			continue
		}
		sb.WriteString(fn(def, children))
	}
	return sb.String()
}

// sortMarks orders the marks of span i so the ones that persist over the
// most following spans come first and end up outermost.
func sortMarks(spans []Span, i int) []string {
	marks := append([]string(nil), spans[i].Marks...)
	reach := make(map[string]int, len(marks))
	for _, m := range marks {
		n := 0
		for j := i; j < len(spans) && containsMark(spans[j].Marks, m); j++ {
			n++
		}
		reach[m] = n
	}
	sort.SliceStable(marks, func(a, b int) bool {
		return reach[marks[a]] > reach[marks[b]]
	})
	return marks
}

func containsMark(marks []string, m string) bool {
	for _, x := range marks {
		if x == m {
			return true
		}
	}
	return false
}

func stackHas(stack []*markNode, m string) bool {
	for _, n := range stack[1:] {
		if n.mark == m {
			return true
		}
	}
	return false
}

// PlainText joins the text of every text block, one block per line.
func PlainText(blocks Blocks) string {
	var lines []string
	for _, b := range blocks {
		if b.Type != "" && b.Type != "block" {
			continue
		}
		var sb strings.Builder
		for _, s := range b.Children {
			sb.WriteString(s.Text)
		}
		if sb.Len() > 0 {
			lines = append(lines, sb.String())
		}
	}
	return strings.Join(lines, "\n")
}

// WordCount counts whitespace separated words across the text blocks.
func WordCount(blocks Blocks) int {
	return len(strings.Fields(PlainText(blocks)))
}

// SafeURL validates and sanitizes a URL for use in HTML attributes.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}

// HeadingClass returns a style renderer for tag with a class attribute.
func HeadingClass(tag, class string) StyleFunc {
	return func(_ Block, children string) string {
		return "<" + tag + ` class="` + html.EscapeString(class) + `">` + children + "</" + tag + ">"
	}
}
