package service

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"officialqa-backend/models"
)

// DefaultMaxChunkRunes bounds the content of a single chunk.
const DefaultMaxChunkRunes = 600

// Chunker splits an official's record into one short statement per category.
type Chunker struct {
	maxRunes int
}

// ChunkerOption configures a Chunker
type ChunkerOption func(*Chunker)

// WithMaxChunkRunes sets the content bound
func WithMaxChunkRunes(n int) ChunkerOption {
	return func(c *Chunker) {
		if n > 0 {
			c.maxRunes = n
		}
	}
}

// NewChunker creates a new chunker
func NewChunker(opts ...ChunkerOption) *Chunker {
	c := &Chunker{maxRunes: DefaultMaxChunkRunes}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// chunkBuilders returns "" when the official has nothing for the category.
var chunkBuilders = map[models.ChunkType]func(o *models.Official) string{
	models.ChunkTypeProfile:       profileContent,
	models.ChunkTypeFinancial:     financialContent,
	models.ChunkTypeLegal:         legalContent,
	models.ChunkTypeRelationships: relationshipsContent,
	models.ChunkTypeEducation:     educationContent,
}

// Chunk returns the official's chunks in chunk type order. An official with
// nothing but a name yields no chunks.
func (c *Chunker) Chunk(o *models.Official) []models.Chunk {
	if o == nil {
		return nil
	}
	clean := trimmed(o)

	chunks := []models.Chunk{}
	for _, t := range models.AllChunkTypes() {
		build, ok := chunkBuilders[t]
		if !ok {
			continue
		}
		content := build(clean)
		if content == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{
			EntityID:   clean.ID,
			EntityName: clean.Name,
			Type:       t,
			Content:    truncateRunes(content, c.maxRunes),
			Metadata:   chunkMetadata(clean),
		})
	}
	return chunks
}

func trimmed(o *models.Official) *models.Official {
	c := *o
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		c.Name = fmt.Sprintf("Official #%d", c.ID)
	}
	c.Position = strings.TrimSpace(c.Position)
	c.Party = strings.TrimSpace(c.Party)
	c.Constituency = strings.TrimSpace(c.Constituency)
	c.State = strings.TrimSpace(c.State)
	c.Education = strings.TrimSpace(c.Education)
	c.Assets = strings.TrimSpace(c.Assets)
	c.Liabilities = strings.TrimSpace(c.Liabilities)
	c.CriminalCaseDetails = strings.TrimSpace(c.CriminalCaseDetails)
	c.PoliticalRelatives = strings.TrimSpace(c.PoliticalRelatives)
	c.DynastyStatus = strings.TrimSpace(c.DynastyStatus)
	c.SourceURL = strings.TrimSpace(c.SourceURL)
	return &c
}

func chunkMetadata(o *models.Official) map[string]any {
	md := map[string]any{"official_name": o.Name}
	if o.Party != "" {
		md["party"] = o.Party
	}
	if o.SourceURL != "" {
		md["source_url"] = o.SourceURL
	}
	return md
}

func profileContent(o *models.Official) string {
	if o.Position == "" && o.Party == "" && o.Constituency == "" && o.State == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString(o.Name)
	if o.Position != "" {
		fmt.Fprintf(&b, " is %s %s", article(o.Position), o.Position)
	} else {
		b.WriteString(" is a public official")
	}
	if o.Party != "" {
		fmt.Fprintf(&b, " from the %s party", o.Party)
	}
	if o.Constituency != "" {
		fmt.Fprintf(&b, ", representing the %s constituency", o.Constituency)
	}
	if o.State != "" {
		fmt.Fprintf(&b, " in %s", o.State)
	}
	b.WriteString(".")
	return b.String()
}

func financialContent(o *models.Official) string {
	if o.Assets == "" && o.Liabilities == "" {
		return ""
	}

	var parts []string
	if o.Assets != "" {
		parts = append(parts, "declared assets worth "+o.Assets)
	}
	if o.Liabilities != "" {
		parts = append(parts, "liabilities of "+o.Liabilities)
	}
	content := fmt.Sprintf("Financial information for %s: %s.", o.Name, strings.Join(parts, " and "))

	assets, okA := parseAmountCrore(o.Assets)
	liabilities, okL := parseAmountCrore(o.Liabilities)
	if okA && okL {
		content += fmt.Sprintf(" Estimated net worth: %s.", formatCrore(assets-liabilities))
	}
	return content
}

func legalContent(o *models.Official) string {
	if o.CriminalCases == nil && o.CriminalCaseDetails == "" {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Legal record for %s:", o.Name)
	if o.CriminalCases != nil {
		switch n := *o.CriminalCases; n {
		case 0:
			b.WriteString(" no declared criminal cases.")
		case 1:
			b.WriteString(" 1 declared criminal case.")
		default:
			fmt.Fprintf(&b, " %d declared criminal cases.", n)
		}
	}
	if o.CriminalCaseDetails != "" {
		fmt.Fprintf(&b, " Case details: %s", o.CriminalCaseDetails)
		if !strings.HasSuffix(o.CriminalCaseDetails, ".") {
			b.WriteString(".")
		}
	}
	return b.String()
}

func relationshipsContent(o *models.Official) string {
	if o.PoliticalRelatives == "" && o.DynastyStatus == "" {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Political relationships for %s:", o.Name)
	if o.PoliticalRelatives != "" {
		fmt.Fprintf(&b, " political relatives include %s.", o.PoliticalRelatives)
	}
	if o.DynastyStatus != "" {
		fmt.Fprintf(&b, " Dynasty status: %s.", o.DynastyStatus)
	}
	return b.String()
}

func educationContent(o *models.Official) string {
	if o.Education == "" {
		return ""
	}
	return fmt.Sprintf("Education of %s: %s.", o.Name, strings.TrimSuffix(o.Education, "."))
}

func article(word string) string {
	if word == "" {
		return "a"
	}
	switch strings.ToLower(word[:1]) {
	case "a", "e", "i", "o", "u":
		return "an"
	}
	return "a"
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max]))
}

var amountPattern = regexp.MustCompile(`([0-9][0-9,]*(?:\.[0-9]+)?)\s*([A-Za-z]*)`)

// parseAmountCrore reads declarations such as "₹5 Crore", "Rs 45 Lakh" or
// "Rs 5,12,34,567 ~ 5 Crore+" and returns the value in crore. Bare numbers
// are rupees.
func parseAmountCrore(s string) (float64, bool) {
	m := amountPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}

	unit := strings.ToLower(m[2])
	switch {
	case strings.HasPrefix(unit, "cr"):
		return value, true
	case strings.HasPrefix(unit, "lakh"), strings.HasPrefix(unit, "lac"):
		return value / 100, true
	default:
		return value / 1e7, true
	}
}

// formatCrore renders a crore amount, switching to lakh below one crore.
func formatCrore(v float64) string {
	if math.Abs(v) >= 1 || v == 0 {
		return fmt.Sprintf("₹%.2f Crore", v)
	}
	return fmt.Sprintf("₹%.2f Lakh", v*100)
}
