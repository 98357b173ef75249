package packaging

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PackResult describes a packed HTML document
type PackResult struct {
	// Inlined counts the assets embedded into the document
	Inlined int

	// Missing lists local references that could not be read
	Missing []string
}

// PackHTML writes a self-contained copy of the HTML document at indexPath to
// dest. Local images become data URIs, stylesheets and scripts are inlined.
// Remote references are kept as they are.
func PackHTML(indexPath, dest string) (PackResult, error) {
	var result PackResult

	f, err := os.Open(indexPath)
	if err != nil {
		return result, fmt.Errorf("failed to open %s: %w", indexPath, err)
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return result, fmt.Errorf("failed to parse %s: %w", indexPath, err)
	}

	p := &packer{root: filepath.Dir(indexPath), result: &result}
	p.walk(doc)

	out, err := os.Create(dest)
	if err != nil {
		return result, fmt.Errorf("failed to create %s: %w", dest, err)
	}
	if err := html.Render(out, doc); err != nil {
		out.Close()
		return result, fmt.Errorf("failed to render %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		return result, fmt.Errorf("failed to write %s: %w", dest, err)
	}

	return result, nil
}

type packer struct {
	root   string
	result *PackResult
}

func (p *packer) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Img:
			p.inlineImage(n)
		case atom.Link:
			p.inlineStylesheet(n)
		case atom.Script:
			p.inlineScript(n)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c)
	}
}

func (p *packer) inlineImage(n *html.Node) {
	src, ok := attr(n, "src")
	if !ok || !isLocal(src) {
		return
	}
	data, ok := p.read(src)
	if !ok {
		return
	}
	setAttr(n, "src", dataURI(src, data))
	p.result.Inlined++
}

func (p *packer) inlineStylesheet(n *html.Node) {
	rel, _ := attr(n, "rel")
	href, ok := attr(n, "href")
	if !strings.EqualFold(rel, "stylesheet") || !ok || !isLocal(href) {
		return
	}
	data, ok := p.read(href)
	if !ok {
		return
	}

	n.Data = "style"
	n.DataAtom = atom.Style
	n.Attr = nil
	n.AppendChild(&html.Node{Type: html.TextNode, Data: string(data)})
	p.result.Inlined++
}

func (p *packer) inlineScript(n *html.Node) {
	src, ok := attr(n, "src")
	if !ok || !isLocal(src) {
		return
	}
	data, ok := p.read(src)
	if !ok {
		return
	}

	removeAttr(n, "src")
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: string(data)})
	p.result.Inlined++
}

func (p *packer) read(ref string) ([]byte, bool) {
	clean := ref
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}

	data, err := os.ReadFile(filepath.Join(p.root, filepath.FromSlash(clean)))
	if err != nil {
		p.result.Missing = append(p.result.Missing, ref)
		return nil, false
	}
	return data, true
}

func isLocal(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "//") || strings.HasPrefix(ref, "#") {
		return false
	}
	lower := strings.ToLower(ref)
	return !strings.HasPrefix(lower, "data:") && !strings.Contains(lower, "://")
}

func dataURI(name string, data []byte) string {
	ext := filepath.Ext(name)
	if i := strings.IndexAny(ext, "?#"); i >= 0 {
		ext = ext[:i]
	}
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	attrs := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			continue
		}
		attrs = append(attrs, a)
	}
	n.Attr = attrs
}
