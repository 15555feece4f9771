package serialization

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// Parse reads src into a node tree. Problems are recorded on ctx rather than
// returned; the parser recovers where it can and returns whatever tree it
// built. It returns nil only when no root element was found.
//
// In lenient mode a mismatched end tag closes the current element. In strict
// mode it records a StrictModeMismatch and drops that element's subtree.
func Parse(src string, ctx *Context) *Node {
	p := &parser{src: src, ctx: ctx, strict: ctx.Options.StrictMode}
	return p.document()
}

type parser struct {
	src    string
	pos    int
	ctx    *Context
	strict bool
}

func (p *parser) document() *Node {
	p.skipMisc()
	if p.eof() {
		p.fail(KindParse, "", "document has no root element")
		return nil
	}
	if p.src[p.pos] != '<' {
		p.fail(KindParse, "", "unexpected text before root element")
		next := strings.IndexByte(p.src[p.pos:], '<')
		if next < 0 {
			return nil
		}
		p.pos += next
		p.skipMisc()
		if p.eof() {
			return nil
		}
	}

	root := p.element(nil)
	p.skipMisc()
	if !p.eof() {
		p.fail(KindParse, "", fmt.Sprintf("unexpected content after root element at offset %d", p.pos))
	}
	return root
}

// element parses one element starting at '<'
func (p *parser) element(parent *Node) *Node {
	p.pos++ // '<'
	tag := p.name()
	if tag == "" {
		p.fail(KindParse, "", fmt.Sprintf("invalid element name at offset %d", p.pos))
		p.skipPast(">")
		return nil
	}
	n := &Node{Tag: tag, parent: parent}

	for {
		p.skipSpace()
		if p.eof() {
			p.fail(KindParse, tag, "unterminated start tag")
			return n
		}
		if strings.HasPrefix(p.src[p.pos:], "/>") {
			p.pos += 2
			return n
		}
		if p.src[p.pos] == '>' {
			p.pos++
			break
		}
		if !p.attribute(n) {
			return n
		}
	}

	var text strings.Builder
	hasChildren := false
	for {
		if p.eof() {
			p.fail(KindParse, tag, "unexpected end of input")
			break
		}
		rest := p.src[p.pos:]
		switch {
		case strings.HasPrefix(rest, "</"):
			p.pos += 2
			end := p.name()
			p.skipSpace()
			if !p.eof() && p.src[p.pos] == '>' {
				p.pos++
			} else {
				p.fail(KindParse, tag, "malformed end tag")
				p.skipPast(">")
			}
			if end != tag {
				if p.strict {
					p.fail(KindStrictMismatch, tag, fmt.Sprintf("end tag </%s> does not match <%s>", end, tag))
					return nil
				}
				logrus.Debugf("lenient parse: </%s> closes <%s>", end, tag)
			}
			if !hasChildren {
				n.Text = text.String()
			}
			return n
		case strings.HasPrefix(rest, "<!--"):
			p.skipPast("-->")
		case strings.HasPrefix(rest, "<![CDATA["):
			p.pos += len("<![CDATA[")
			end := strings.Index(p.src[p.pos:], "]]>")
			if end < 0 {
				p.fail(KindParse, tag, "unterminated CDATA section")
				text.WriteString(p.src[p.pos:])
				p.pos = len(p.src)
				continue
			}
			text.WriteString(p.src[p.pos : p.pos+end])
			p.pos += end + 3
		case strings.HasPrefix(rest, "<?"):
			p.skipPast("?>")
		case rest[0] == '<':
			hasChildren = true
			if child := p.element(n); child != nil {
				n.Children = append(n.Children, child)
			}
		default:
			end := strings.IndexByte(rest, '<')
			if end < 0 {
				end = len(rest)
			}
			text.WriteString(unescape(rest[:end]))
			p.pos += end
		}
	}

	if !hasChildren {
		n.Text = text.String()
	}
	return n
}

// attribute parses name="value"; false means the start tag cannot continue
func (p *parser) attribute(n *Node) bool {
	name := p.name()
	if name == "" {
		_, size := utf8.DecodeRuneInString(p.src[p.pos:])
		p.fail(KindParse, n.Tag, fmt.Sprintf("unexpected character %q in start tag", p.src[p.pos:p.pos+size]))
		p.pos += size
		return true
	}
	p.skipSpace()
	if p.eof() || p.src[p.pos] != '=' {
		p.fail(KindParse, n.Tag, fmt.Sprintf("attribute %s has no value", name))
		n.Attrs = append(n.Attrs, Attr{Name: name})
		return !p.eof()
	}
	p.pos++
	p.skipSpace()
	if p.eof() {
		p.fail(KindParse, n.Tag, "unterminated start tag")
		return false
	}

	quote := p.src[p.pos]
	if quote != '"' && quote != '\'' {
		p.fail(KindParse, n.Tag, fmt.Sprintf("attribute %s value is not quoted", name))
		start := p.pos
		for !p.eof() && !isSpace(p.src[p.pos]) && p.src[p.pos] != '>' && p.src[p.pos] != '/' {
			p.pos++
		}
		n.Attrs = append(n.Attrs, Attr{Name: name, Value: unescape(p.src[start:p.pos])})
		return true
	}

	p.pos++
	end := strings.IndexByte(p.src[p.pos:], quote)
	if end < 0 {
		p.fail(KindParse, n.Tag, fmt.Sprintf("attribute %s value is not terminated", name))
		p.pos = len(p.src)
		return false
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: unescape(p.src[p.pos : p.pos+end])})
	p.pos += end + 1
	return true
}

// skipMisc skips whitespace, declarations, processing instructions and comments
func (p *parser) skipMisc() {
	for {
		p.skipSpace()
		rest := p.src[p.pos:]
		switch {
		case strings.HasPrefix(rest, "<?"):
			p.skipPast("?>")
		case strings.HasPrefix(rest, "<!--"):
			p.skipPast("-->")
		case strings.HasPrefix(rest, "<!"):
			p.skipPast(">")
		default:
			return
		}
	}
}

func (p *parser) skipPast(marker string) {
	end := strings.Index(p.src[p.pos:], marker)
	if end < 0 {
		p.fail(KindParse, "", fmt.Sprintf("expected %q before end of input", marker))
		p.pos = len(p.src)
		return
	}
	p.pos += end + len(marker)
}

func (p *parser) skipSpace() {
	for !p.eof() && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *parser) name() string {
	start := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		if c == '_' || c == ':' || c == '-' || c == '.' || c >= 0x80 ||
			('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) fail(kind ErrorKind, tag, message string) {
	p.ctx.AddError(&Error{Kind: kind, ElementName: tag, Message: message})
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

var entities = map[string]string{
	"amp":  "&",
	"lt":   "<",
	"gt":   ">",
	"quot": `"`,
	"apos": "'",
}

// unescape replaces the predefined and numeric character references.
// Unknown entities are kept verbatim.
func unescape(s string) string {
	if strings.IndexByte(s, '&') < 0 {
		return s
	}
	var b strings.Builder
	for {
		amp := strings.IndexByte(s, '&')
		if amp < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:amp])
		s = s[amp:]
		semi := strings.IndexByte(s, ';')
		if semi < 0 {
			b.WriteString(s)
			return b.String()
		}
		ref := s[1:semi]
		if r, ok := entities[ref]; ok {
			b.WriteString(r)
		} else if r, ok := charRef(ref); ok {
			b.WriteRune(r)
		} else {
			b.WriteString(s[:semi+1])
		}
		s = s[semi+1:]
	}
}

func charRef(ref string) (rune, bool) {
	if !strings.HasPrefix(ref, "#") {
		return 0, false
	}
	var (
		n   uint64
		err error
	)
	if strings.HasPrefix(ref, "#x") || strings.HasPrefix(ref, "#X") {
		n, err = strconv.ParseUint(ref[2:], 16, 32)
	} else {
		n, err = strconv.ParseUint(ref[1:], 10, 32)
	}
	if err != nil || !utf8.ValidRune(rune(n)) {
		return 0, false
	}
	return rune(n), true
}

var (
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
}

func escapeText(s string) string {
	return textEscaper.Replace(s)
}
