package table

import (
	"io"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/els-search/pkg/types"
)

// CSLItem represents a bibliographic entry in CSL (Citation Style Language)
// format. The field names and structure follow the CSL-JSON/CSL-YAML schema
// so that output is consumable by Pandoc and reference managers.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Volume         string    `yaml:"volume,omitempty"`
	Issue          string    `yaml:"issue,omitempty"`
	Page           string    `yaml:"page,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// cslTypes maps Scopus subtype codes to CSL item types.
var cslTypes = map[string]string{
	"ar": "article-journal",
	"re": "article-journal",
	"le": "article-journal",
	"no": "article-journal",
	"cp": "paper-conference",
	"ch": "chapter",
	"bk": "book",
}

// WriteCSL writes entries as a CSL-YAML list to w.
func WriteCSL(w io.Writer, entries []types.Entry) error {
	items := make([]CSLItem, len(entries))
	for i, e := range entries {
		items[i] = toCSLItem(e)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

// toCSLItem converts a Scopus search entry to a CSLItem.
func toCSLItem(e types.Entry) CSLItem {
	item := CSLItem{
		ID:             entryID(e),
		Type:           "article",
		Title:          e.String("dc:title"),
		ContainerTitle: e.String("prism:publicationName"),
		Volume:         e.String("prism:volume"),
		Issue:          e.String("prism:issueIdentifier"),
		Page:           e.String("prism:pageRange"),
		DOI:            e.String("prism:doi"),
	}
	if t, ok := cslTypes[e.String("subtype")]; ok {
		item.Type = t
	}

	if authors, ok := e["author"].([]any); ok {
		for _, a := range authors {
			m, _ := a.(map[string]any)
			name := CSLName{}
			name.Family, _ = m["surname"].(string)
			name.Given, _ = m["given-name"].(string)
			if name.Family == "" {
				authname, _ := m["authname"].(string)
				name = parseAuthorName(authname)
			}
			if name != (CSLName{}) {
				item.Author = append(item.Author, name)
			}
		}
	}
	if len(item.Author) == 0 {
		if creator := e.String("dc:creator"); creator != "" {
			item.Author = []CSLName{parseAuthorName(creator)}
		}
	}

	if d, err := time.Parse(coverDateFmt, e.String("prism:coverDate")); err == nil {
		item.Issued = &CSLDate{
			DateParts: [][]int{{d.Year(), int(d.Month()), d.Day()}},
		}
	}

	if item.DOI != "" {
		item.URL = "https://doi.org/" + item.DOI
	}
	return item
}

// entryID prefers the EID, then dc:identifier, then the DOI.
func entryID(e types.Entry) string {
	for _, k := range []string{"eid", "dc:identifier", "prism:doi"} {
		if v := e.String(k); v != "" {
			return v
		}
	}
	return ""
}

// parseAuthorName splits an author string into CSL family/given parts.
// Scopus writes "Family I." so a comma-free name splits on the first
// space; "Family, Given" splits on the comma. Single tokens use the
// literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	if family, given, ok := strings.Cut(name, ","); ok {
		return CSLName{Family: strings.TrimSpace(family), Given: strings.TrimSpace(given)}
	}
	family, given, ok := strings.Cut(name, " ")
	if !ok {
		return CSLName{Literal: name}
	}
	return CSLName{Family: family, Given: strings.TrimSpace(given)}
}
