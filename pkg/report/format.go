package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aymerick/raymond"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fulmenhq/complic/internal/assets"
	"github.com/fulmenhq/complic/pkg/ascii"
)

const maxDependencyWidth = 72

var title = cases.Title(language.Und)

func heading(s string) string {
	h := title.String(s)
	return h + "\n" + strings.Repeat("=", ascii.StringWidth(h)) + "\n"
}

// Text renders the human-readable summary: counts, a license table and
// the problems with the dependencies they affect.
func (d *Document) Text() string {
	var sb strings.Builder

	project := d.Project
	if project == "" {
		project = "unnamed project"
	}
	sb.WriteString(ascii.Box([]string{
		fmt.Sprintf("License report: %s", project),
		fmt.Sprintf("Dependencies: %d", d.Summary.Dependencies),
		fmt.Sprintf("Licenses:     %d", d.Summary.Licenses),
		fmt.Sprintf("Problems:     %d", d.Summary.Problems),
	}))
	sb.WriteString("\n")
	sb.WriteString(d.Summary.Evidence)
	sb.WriteString("\n\n")

	sb.WriteString(heading("licenses"))
	sb.WriteString(ascii.Table([]string{"License", "Known", "Approved", "Dependencies"}, d.licenseRows()))
	sb.WriteString("\n")

	sb.WriteString(heading("problems"))
	if len(d.Problems) == 0 {
		sb.WriteString("No approval or compatibility problems found.\n")
		return sb.String()
	}
	for i, p := range d.Problems {
		sb.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, p.Kind, p.Message))
		for _, dep := range p.Dependencies {
			sb.WriteString("     " + ascii.Truncate(dep, maxDependencyWidth) + "\n")
		}
	}
	return sb.String()
}

func (d *Document) licenseRows() [][]string {
	counts := make(map[string]int, len(d.Licenses))
	for _, names := range d.Dependencies {
		for _, n := range names {
			counts[n]++
		}
	}
	names := make([]string, 0, len(d.Licenses))
	for n := range d.Licenses {
		names = append(names, n)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, n := range names {
		approved := "-"
		if ok, found := d.Approval[n]; found {
			approved = yesNo(ok)
		}
		rows = append(rows, []string{n, yesNo(d.Licenses[n]), approved, strconv.Itoa(counts[n])})
	}
	return rows
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Markdown renders the report for pull request comments and CI summaries.
func (d *Document) Markdown() string {
	var sb strings.Builder
	project := d.Project
	if project == "" {
		project = "unnamed project"
	}
	sb.WriteString(fmt.Sprintf("# License report: %s\n\n", project))
	sb.WriteString(d.Summary.Evidence + "\n\n")

	sb.WriteString("## " + title.String("licenses") + "\n\n")
	sb.WriteString("| License | Known | Approved | Dependencies |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, row := range d.licenseRows() {
		sb.WriteString("| `" + row[0] + "` | " + strings.Join(row[1:], " | ") + " |\n")
	}

	sb.WriteString("\n## " + title.String("problems") + "\n\n")
	if len(d.Problems) == 0 {
		sb.WriteString("No approval or compatibility problems found.\n")
		return sb.String()
	}
	for _, p := range d.Problems {
		sb.WriteString(fmt.Sprintf("- **%s**: %s\n", p.Kind, p.Message))
		for _, dep := range p.Dependencies {
			sb.WriteString("  - `" + dep + "`\n")
		}
	}
	return sb.String()
}

var registerHelpers sync.Once

// RenderTemplate renders the report through a handlebars template. An
// empty template selects the bundled one.
func (d *Document) RenderTemplate(tpl string) (string, error) {
	if tpl == "" {
		tpl = string(assets.ReportTemplate)
	}
	registerHelpers.Do(func() {
		raymond.RegisterHelper("gt", func(a, b interface{}) bool {
			aVal, _ := strconv.Atoi(fmt.Sprintf("%v", a))
			bVal, _ := strconv.Atoi(fmt.Sprintf("%v", b))
			return aVal > bVal
		})
	})
	out, err := raymond.Render(tpl, d.templateData())
	if err != nil {
		return "", fmt.Errorf("failed to render report template: %w", err)
	}
	return out, nil
}

func (d *Document) templateData() map[string]interface{} {
	problems := make([]map[string]interface{}, 0, len(d.Problems))
	for _, p := range d.Problems {
		problems = append(problems, map[string]interface{}{
			"kind":         string(p.Kind),
			"subject":      p.Subject,
			"message":      p.Message,
			"licenses":     p.Licenses,
			"dependencies": p.Dependencies,
		})
	}
	licenses := make([]map[string]interface{}, 0, len(d.Licenses))
	for _, row := range d.licenseRows() {
		licenses = append(licenses, map[string]interface{}{
			"name":         row[0],
			"known":        row[1],
			"approved":     row[2],
			"dependencies": row[3],
		})
	}
	return map[string]interface{}{
		"id":       d.ID,
		"project":  d.Project,
		"date":     d.Date.Format("2006-01-02 15:04:05 MST"),
		"licenses": licenses,
		"problems": problems,
		"summary": map[string]interface{}{
			"dependencies": d.Summary.Dependencies,
			"licenses":     d.Summary.Licenses,
			"approved":     d.Summary.Approved,
			"not_approved": d.Summary.NotApproved,
			"unknown":      d.Summary.Unknown,
			"problems":     d.Summary.Problems,
			"evidence":     d.Summary.Evidence,
		},
	}
}
