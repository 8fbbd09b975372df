package epub

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// emptyChapterThreshold is the minimum rune count of a chapter's text
// content before it is flagged as empty.
const emptyChapterThreshold = 10

type containerDoc struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type packageDoc struct {
	Metadata struct {
		Title   string `xml:"title"`
		Creator string `xml:"creator"`
	} `xml:"metadata"`
	Spine struct {
		Itemrefs []struct {
			Idref string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// Validate re-opens an emitted archive and reports quality problems as
// human-readable issues. An empty slice means the archive passed. The
// error return covers archives that cannot be read at all.
func Validate(epubPath string) ([]string, error) {
	r, err := zip.OpenReader(epubPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	var issues []string

	issues = append(issues, checkMimetype(r)...)

	files := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		files[f.Name] = f
	}

	opfPath, containerIssues := checkContainer(files)
	issues = append(issues, containerIssues...)

	if opfPath != "" {
		issues = append(issues, checkPackage(files, opfPath)...)
	}

	issues = append(issues, checkChapters(files)...)

	return issues, nil
}

func checkMimetype(r *zip.ReadCloser) []string {
	if len(r.File) == 0 {
		return []string{"archive is empty"}
	}

	first := r.File[0]
	if first.Name != "mimetype" {
		return []string{fmt.Sprintf("first entry is %q, want mimetype", first.Name)}
	}

	var issues []string
	if first.Method != zip.Store {
		issues = append(issues, "mimetype entry is compressed")
	}
	data, err := readZipFile(first)
	if err != nil {
		return append(issues, fmt.Sprintf("mimetype entry unreadable: %v", err))
	}
	if string(data) != MimeType {
		issues = append(issues, fmt.Sprintf("mimetype content is %q, want %q", data, MimeType))
	}
	return issues
}

func checkContainer(files map[string]*zip.File) (string, []string) {
	f, ok := files["META-INF/container.xml"]
	if !ok {
		return "", []string{"missing META-INF/container.xml"}
	}

	data, err := readZipFile(f)
	if err != nil {
		return "", []string{fmt.Sprintf("container.xml unreadable: %v", err)}
	}

	var doc containerDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", []string{fmt.Sprintf("container.xml does not parse: %v", err)}
	}
	if len(doc.Rootfiles) == 0 || doc.Rootfiles[0].FullPath == "" {
		return "", []string{"container.xml names no rootfile"}
	}

	opfPath := doc.Rootfiles[0].FullPath
	if _, ok := files[opfPath]; !ok {
		return "", []string{fmt.Sprintf("container.xml points at missing %s", opfPath)}
	}
	return opfPath, nil
}

func checkPackage(files map[string]*zip.File, opfPath string) []string {
	data, err := readZipFile(files[opfPath])
	if err != nil {
		return []string{fmt.Sprintf("%s unreadable: %v", opfPath, err)}
	}

	var doc packageDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return []string{fmt.Sprintf("%s does not parse: %v", opfPath, err)}
	}

	var issues []string
	if strings.TrimSpace(doc.Metadata.Title) == "" {
		issues = append(issues, "no title in package metadata")
	}
	if strings.TrimSpace(doc.Metadata.Creator) == "" {
		issues = append(issues, "no author in package metadata")
	}
	if len(doc.Spine.Itemrefs) == 0 {
		issues = append(issues, "empty spine")
	}
	return issues
}

// checkChapters parses every chapter document and flags ones whose text
// content is effectively empty.
func checkChapters(files map[string]*zip.File) []string {
	var issues []string
	chapterCount := 0

	for name, f := range files {
		if path.Ext(name) != ".xhtml" {
			continue
		}
		base := path.Base(name)
		if base == "nav.xhtml" || base == "cover.xhtml" {
			continue
		}
		chapterCount++

		data, err := readZipFile(f)
		if err != nil {
			issues = append(issues, fmt.Sprintf("%s unreadable: %v", name, err))
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
		if err != nil {
			issues = append(issues, fmt.Sprintf("%s does not parse: %v", name, err))
			continue
		}

		text := strings.TrimSpace(doc.Find("body").Text())
		if len([]rune(text)) < emptyChapterThreshold {
			issues = append(issues, fmt.Sprintf("%s has no meaningful content", name))
		}
	}

	if chapterCount == 0 {
		issues = append(issues, "archive contains no chapter documents")
	}
	return issues
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
