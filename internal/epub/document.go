package epub

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/KongYongGun/epub-studio/internal/project"
)

type chapterRef struct {
	File  string
	Title string
}

type fontFace struct {
	Family string
	File   string
}

// book collects everything the package documents reference.
type book struct {
	identifier string
	title      string
	author     string
	publisher  string
	modified   time.Time
	hasCover   bool
	chapters   []chapterRef
	images     []string
	fonts      []string
}

// contentOPF renders the package document: metadata, manifest, spine, and
// an EPUB 2 guide.
func contentOPF(b *book) string {
	var sb strings.Builder

	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="bookid">` + "\n")

	sb.WriteString(`  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">` + "\n")
	fmt.Fprintf(&sb, "    <dc:identifier id=\"bookid\">urn:uuid:%s</dc:identifier>\n", b.identifier)
	fmt.Fprintf(&sb, "    <dc:title>%s</dc:title>\n", html.EscapeString(b.title))
	if b.author != "" {
		fmt.Fprintf(&sb, "    <dc:creator>%s</dc:creator>\n", html.EscapeString(b.author))
	}
	if b.publisher != "" {
		fmt.Fprintf(&sb, "    <dc:publisher>%s</dc:publisher>\n", html.EscapeString(b.publisher))
	}
	sb.WriteString("    <dc:language>ko</dc:language>\n")
	fmt.Fprintf(&sb, "    <meta property=\"dcterms:modified\">%s</meta>\n", b.modified.Format("2006-01-02T15:04:05Z"))
	if b.hasCover {
		sb.WriteString(`    <meta name="cover" content="cover-image"/>` + "\n")
	}
	sb.WriteString("  </metadata>\n")

	sb.WriteString("  <manifest>\n")
	sb.WriteString(`    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>` + "\n")
	sb.WriteString(`    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>` + "\n")
	sb.WriteString(`    <item id="css" href="stylesheet.css" media-type="text/css"/>` + "\n")
	if b.hasCover {
		sb.WriteString(`    <item id="cover-image" href="cover.jpg" media-type="image/jpeg" properties="cover-image"/>` + "\n")
		sb.WriteString(`    <item id="cover" href="cover.xhtml" media-type="application/xhtml+xml"/>` + "\n")
	}
	for i, img := range b.images {
		fmt.Fprintf(&sb, "    <item id=\"img%03d\" href=\"%s\" media-type=\"image/jpeg\"/>\n", i+1, img)
	}
	for i, font := range b.fonts {
		fmt.Fprintf(&sb, "    <item id=\"font%d\" href=\"%s\" media-type=\"application/vnd.ms-opentype\"/>\n", i+1, font)
	}
	for i, c := range b.chapters {
		fmt.Fprintf(&sb, "    <item id=\"chapter%03d\" href=\"%s\" media-type=\"application/xhtml+xml\"/>\n", i+1, c.File)
	}
	sb.WriteString("  </manifest>\n")

	sb.WriteString(`  <spine toc="ncx">` + "\n")
	if b.hasCover {
		sb.WriteString(`    <itemref idref="cover" linear="no"/>` + "\n")
	}
	for i := range b.chapters {
		fmt.Fprintf(&sb, "    <itemref idref=\"chapter%03d\"/>\n", i+1)
	}
	sb.WriteString("  </spine>\n")

	if b.hasCover {
		sb.WriteString("  <guide>\n")
		sb.WriteString(`    <reference type="cover" title="Cover" href="cover.xhtml"/>` + "\n")
		sb.WriteString("  </guide>\n")
	}

	sb.WriteString("</package>\n")
	return sb.String()
}

// tocNCX renders the EPUB 2 navigation file.
func tocNCX(b *book) string {
	var sb strings.Builder

	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">` + "\n")
	sb.WriteString("  <head>\n")
	fmt.Fprintf(&sb, "    <meta name=\"dtb:uid\" content=\"urn:uuid:%s\"/>\n", b.identifier)
	sb.WriteString(`    <meta name="dtb:depth" content="1"/>` + "\n")
	sb.WriteString("  </head>\n")
	fmt.Fprintf(&sb, "  <docTitle><text>%s</text></docTitle>\n", html.EscapeString(b.title))
	sb.WriteString("  <navMap>\n")
	for i, c := range b.chapters {
		fmt.Fprintf(&sb, "    <navPoint id=\"navpoint-%d\" playOrder=\"%d\">\n", i+1, i+1)
		fmt.Fprintf(&sb, "      <navLabel><text>%s</text></navLabel>\n", html.EscapeString(c.Title))
		fmt.Fprintf(&sb, "      <content src=\"%s\"/>\n", c.File)
		sb.WriteString("    </navPoint>\n")
	}
	sb.WriteString("  </navMap>\n")
	sb.WriteString("</ncx>\n")
	return sb.String()
}

// navXHTML renders the EPUB 3 navigation document.
func navXHTML(b *book) string {
	var sb strings.Builder

	sb.WriteString(xhtmlHead("목차"))
	sb.WriteString(`  <nav epub:type="toc" id="toc">` + "\n")
	sb.WriteString("    <h1>목차</h1>\n    <ol>\n")
	for _, c := range b.chapters {
		fmt.Fprintf(&sb, "      <li><a href=\"%s\">%s</a></li>\n", c.File, html.EscapeString(c.Title))
	}
	sb.WriteString("    </ol>\n  </nav>\n</body>\n</html>\n")
	return sb.String()
}

// chapterXHTML renders one chapter: heading, optional image, and one
// paragraph per non-blank source line.
func chapterXHTML(title, text, imageName string) string {
	var sb strings.Builder

	sb.WriteString(xhtmlHead(title))
	fmt.Fprintf(&sb, "  <h1 class=\"chapter-title\">%s</h1>\n", html.EscapeString(title))
	if imageName != "" {
		fmt.Fprintf(&sb, "  <div class=\"chapter-image\"><img src=\"%s\" alt=\"%s\"/></div>\n",
			imageName, html.EscapeString(title))
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fmt.Fprintf(&sb, "  <p>%s</p>\n", html.EscapeString(line))
	}
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}

func coverXHTML() string {
	var sb strings.Builder
	sb.WriteString(xhtmlHead("표지"))
	sb.WriteString(`  <div class="cover"><img src="cover.jpg" alt="표지"/></div>` + "\n")
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}

func xhtmlHead(title string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops" lang="ko" xml:lang="ko">
<head>
  <title>%s</title>
  <link rel="stylesheet" type="text/css" href="stylesheet.css"/>
</head>
<body>
`, html.EscapeString(title))
}

// buildStylesheet generates the archive stylesheet from the project's
// style settings, margins, and embedded fonts.
func buildStylesheet(style project.StyleSettings, margins project.Margins, fonts []fontFace) string {
	var sb strings.Builder

	for _, f := range fonts {
		fmt.Fprintf(&sb, "@font-face {\n  font-family: \"%s\";\n  src: url(\"%s\");\n}\n\n", f.Family, f.File)
	}

	fmt.Fprintf(&sb, "body {\n  margin-top: %dem;\n  margin-bottom: %dem;\n  line-height: 1.6;\n", margins.Top, margins.Bottom)
	if len(fonts) > 0 && fonts[0].Family == "BodyFont" {
		sb.WriteString("  font-family: \"BodyFont\", serif;\n")
	}
	sb.WriteString("}\n\n")

	fmt.Fprintf(&sb, "h1.chapter-title {\n  text-align: %s;\n  color: %s;\n", style.ChapterAlign, style.ChapterFontColor)
	switch style.ChapterFontStyle {
	case "italic":
		sb.WriteString("  font-style: italic;\n")
	case "bold":
		sb.WriteString("  font-weight: bold;\n")
	default:
		sb.WriteString("  font-weight: normal;\n")
	}
	for _, f := range fonts {
		if f.Family == "ChapterFont" {
			sb.WriteString("  font-family: \"ChapterFont\", serif;\n")
		}
	}
	sb.WriteString("}\n\n")

	fmt.Fprintf(&sb, "p {\n  text-align: %s;\n  text-indent: 1em;\n  margin: 0.2em 0;\n}\n\n", style.BodyAlign)

	sb.WriteString(".cover img, .chapter-image img {\n  max-width: 100%;\n  height: auto;\n}\n")

	return sb.String()
}
