// Package report aggregates the licenses found across a project's
// dependencies and renders the compliance verdict.
package report

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fulmenhq/complic/pkg/compat"
	"github.com/fulmenhq/complic/pkg/licenses"
	"github.com/fulmenhq/complic/pkg/logger"
	"github.com/google/uuid"
)

// NoLicense is recorded for a dependency that declares no license at all.
const NoLicense = "<no license>"

// ErrFinalized is returned when a report is modified after Render.
var ErrFinalized = errors.New("report already rendered")

// Approvals answers approval lookups for canonical names.
type Approvals interface {
	IsApproved(name string) (bool, error)
}

// Option configures a Report.
type Option func(*Report)

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Report) { r.now = now }
}

// WithID sets the report id instead of a random UUID.
func WithID(id string) Option {
	return func(r *Report) { r.id = id }
}

// WithCheckers replaces the default compatibility checkers.
func WithCheckers(checkers ...compat.Checker) Option {
	return func(r *Report) { r.checkers = append([]compat.Checker{}, checkers...) }
}

// Report accumulates license observations. It is safe for concurrent use;
// after Render it is read-only.
type Report struct {
	mu sync.Mutex

	project   string
	id        string
	now       func() time.Time
	approvals Approvals
	checkers  []compat.Checker

	known map[string]bool
	deps  map[string]map[string]struct{}

	doc *Document
}

// New creates an empty report running compat.Defaults unless WithCheckers
// is given.
func New(project string, approvals Approvals, opts ...Option) *Report {
	r := &Report{
		project:   project,
		now:       time.Now,
		approvals: approvals,
		checkers:  compat.Defaults(),
		known:     make(map[string]bool),
		deps:      make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.id == "" {
		r.id = uuid.NewString()
	}
	return r
}

// AddLicense records that dependency carries name. Repeated calls are
// idempotent. A name recorded once as unknown stays unknown, so raw text
// that collides with a canonical name still surfaces as a problem.
func (r *Report) AddLicense(name, dependency string, known bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.doc != nil {
		return ErrFinalized
	}
	if prev, ok := r.known[name]; ok {
		known = prev && known
	}
	r.known[name] = known
	set, ok := r.deps[dependency]
	if !ok {
		set = make(map[string]struct{})
		r.deps[dependency] = set
	}
	set[name] = struct{}{}
	return nil
}

// AddDependency normalizes each raw license of a dependency and records it.
// Unmatched strings are recorded as unknown under their trimmed text; a
// dependency without any license gets the NoLicense sentinel.
func (r *Report) AddDependency(id string, raw []string, n licenses.Normalizer) error {
	added := 0
	for _, text := range raw {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		name, err := n.Match(text)
		switch {
		case errors.Is(err, licenses.ErrUnknownLicense):
			logger.Debug("Unrecognized license text", logger.String("dependency", id), logger.String("license", text))
			if err := r.AddLicense(text, id, false); err != nil {
				return err
			}
		case err != nil:
			return fmt.Errorf("failed to normalize license of %s: %w", id, err)
		default:
			if err := r.AddLicense(name, id, true); err != nil {
				return err
			}
		}
		added++
	}
	if added == 0 {
		return r.AddLicense(NoLicense, id, false)
	}
	return nil
}

// AddCompat registers another compatibility checker. Its name must not be
// taken by a registered checker.
func (r *Report) AddCompat(c compat.Checker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.doc != nil {
		return ErrFinalized
	}
	for _, existing := range r.checkers {
		if existing.Name() == c.Name() {
			return fmt.Errorf("%w: %q", compat.ErrDuplicateChecker, c.Name())
		}
	}
	r.checkers = append(r.checkers, c)
	return nil
}

// Render computes compatibility, approval and problems once; later calls
// return the same document. Approval lookup failures are returned as
// errors and nothing is memoized.
func (r *Report) Render() (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.doc != nil {
		return r.doc, nil
	}
	if r.approvals == nil {
		return nil, errors.New("report has no approval registry")
	}
	if err := compat.Unique(r.checkers); err != nil {
		return nil, err
	}

	doc := &Document{
		ID:            r.id,
		Project:       r.project,
		Date:          r.now().UTC().Truncate(time.Second),
		Licenses:      make(map[string]bool, len(r.known)),
		Dependencies:  make(map[string][]string, len(r.deps)),
		Compatibility: make(map[string]compat.Result, len(r.checkers)),
		Approval:      make(map[string]bool),
		Problems:      []Problem{},
	}

	for name, known := range r.known {
		doc.Licenses[name] = known
	}
	carriers := make(map[string][]string)
	for dep, names := range r.deps {
		list := make([]string, 0, len(names))
		for n := range names {
			list = append(list, n)
			carriers[n] = append(carriers[n], dep)
		}
		sort.Strings(list)
		doc.Dependencies[dep] = list
	}
	for n := range carriers {
		sort.Strings(carriers[n])
	}

	var knownNames, unknownNames []string
	for name, known := range r.known {
		if known {
			knownNames = append(knownNames, name)
		} else {
			unknownNames = append(unknownNames, name)
		}
	}
	sort.Strings(knownNames)
	sort.Strings(unknownNames)

	for _, c := range r.checkers {
		res := c.Check(knownNames)
		doc.Compatibility[c.Name()] = res
		if !res.Violated {
			continue
		}
		msg := fmt.Sprintf("%s: %s", res.Description, strings.Join(res.Offending, ", "))
		if res.Error != "" {
			msg = fmt.Sprintf("%s: evaluation failed: %s", res.Description, res.Error)
		}
		doc.Problems = append(doc.Problems, Problem{
			Kind:         KindCompatibility,
			Subject:      c.Name(),
			Message:      msg,
			Licenses:     res.Offending,
			Dependencies: dependentsOf(res.Offending, carriers),
		})
	}

	for _, name := range unknownNames {
		doc.Problems = append(doc.Problems, Problem{
			Kind:         KindUnknown,
			Subject:      name,
			Message:      fmt.Sprintf("Unknown license %q grants no known rights", name),
			Licenses:     []string{name},
			Dependencies: carriers[name],
		})
	}

	approved, notApproved := 0, 0
	for _, name := range knownNames {
		ok, err := r.approvals.IsApproved(name)
		if err != nil {
			return nil, fmt.Errorf("approval lookup for %q failed: %w", name, err)
		}
		doc.Approval[name] = ok
		if ok {
			approved++
			continue
		}
		notApproved++
		doc.Problems = append(doc.Problems, Problem{
			Kind:         KindNotApproved,
			Subject:      name,
			Message:      fmt.Sprintf("License %s is not approved", name),
			Licenses:     []string{name},
			Dependencies: carriers[name],
		})
	}

	doc.Summary = Summary{
		Dependencies: len(doc.Dependencies),
		Licenses:     len(doc.Licenses),
		Approved:     approved,
		NotApproved:  notApproved,
		Unknown:      len(unknownNames),
		Problems:     len(doc.Problems),
	}
	doc.Summary.Evidence = evidence(doc)

	r.doc = doc
	return doc, nil
}

func dependentsOf(names []string, carriers map[string][]string) []string {
	seen := map[string]bool{}
	var out []string
	for _, n := range names {
		for _, dep := range carriers[n] {
			if !seen[dep] {
				seen[dep] = true
				out = append(out, dep)
			}
		}
	}
	sort.Strings(out)
	return out
}

func evidence(d *Document) string {
	project := d.Project
	if project == "" {
		project = "unnamed"
	}
	return fmt.Sprintf(
		"On %s, a license analysis was performed of project (%s), finding %d unique dependencies. "+
			"Detected %d licenses, having %d approved, %d not approved and %d unknown.",
		d.Date.Format("2006-01-02"), project, d.Summary.Dependencies,
		d.Summary.Licenses, d.Summary.Approved, d.Summary.NotApproved, d.Summary.Unknown,
	)
}
