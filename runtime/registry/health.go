package registry

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// IssueKind classifies a health report entry.
type IssueKind string

const (
	UnresolvedParentType      IssueKind = "UnresolvedParentType"
	CycleDetected             IssueKind = "CycleDetected"
	MissingBaseType           IssueKind = "MissingBaseType"
	MissingRequiredType       IssueKind = "MissingRequiredType"
	DuplicateTypeRegistration IssueKind = "DuplicateTypeRegistration"
	AmbiguousRequirement      IssueKind = "AmbiguousRequirement"
	NoInheritance             IssueKind = "NoInheritance"
)

// Issue is a single error or warning in a HealthReport.
type Issue struct {
	Kind    IssueKind `json:"kind" yaml:"kind"`
	Type    string    `json:"type,omitempty" yaml:"type,omitempty"`
	Message string    `json:"message" yaml:"message"`
}

// String implements fmt.Stringer
func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s", i.Kind, i.Message)
}

// HealthReport is the result of ValidateConsistency.
type HealthReport struct {
	ID              string         `json:"id" yaml:"id"`
	GeneratedAt     time.Time      `json:"generatedAt" yaml:"generatedAt"`
	Errors          []Issue        `json:"errors" yaml:"errors"`
	Warnings        []Issue        `json:"warnings" yaml:"warnings"`
	Recommendations []string       `json:"recommendations" yaml:"recommendations"`
	Metadata        map[string]any `json:"metadata" yaml:"metadata"`
}

func (h *HealthReport) addError(kind IssueKind, id TypeID, format string, args ...any) {
	h.Errors = append(h.Errors, Issue{Kind: kind, Type: id.QualifiedName(), Message: fmt.Sprintf(format, args...)})
}

func (h *HealthReport) addWarning(kind IssueKind, id TypeID, format string, args ...any) {
	h.Warnings = append(h.Warnings, Issue{Kind: kind, Type: id.QualifiedName(), Message: fmt.Sprintf(format, args...)})
}

// IsStructurallySound reports whether the report has no errors. Warnings do not count.
func (h *HealthReport) IsStructurallySound() bool { return len(h.Errors) == 0 }

// FollowsBestPractices reports whether the report has neither errors nor warnings.
func (h *HealthReport) FollowsBestPractices() bool {
	return len(h.Errors) == 0 && len(h.Warnings) == 0
}

// HasErrors reports whether any error was recorded.
func (h *HealthReport) HasErrors() bool { return len(h.Errors) > 0 }

// HasWarnings reports whether any warning was recorded.
func (h *HealthReport) HasWarnings() bool { return len(h.Warnings) > 0 }

// ErrorsOfKind returns the errors of the given kind.
func (h *HealthReport) ErrorsOfKind(kind IssueKind) []Issue {
	return issuesOfKind(h.Errors, kind)
}

// WarningsOfKind returns the warnings of the given kind.
func (h *HealthReport) WarningsOfKind(kind IssueKind) []Issue {
	return issuesOfKind(h.Warnings, kind)
}

func issuesOfKind(issues []Issue, kind IssueKind) []Issue {
	var out []Issue
	for _, issue := range issues {
		if issue.Kind == kind {
			out = append(out, issue)
		}
	}
	return out
}

// ExitCode returns 0 for a structurally sound report and 1 otherwise.
func (h *HealthReport) ExitCode() int {
	if h.IsStructurallySound() {
		return 0
	}
	return 1
}

// Summary returns a one-line description of the report.
func (h *HealthReport) Summary() string {
	status := "HEALTHY"
	switch {
	case h.HasErrors():
		status = "UNHEALTHY"
	case h.HasWarnings():
		status = "HEALTHY WITH WARNINGS"
	}
	total := metadataInt(h.Metadata["totalTypes"])
	return fmt.Sprintf("Registry %s: %d types, %d errors, %d warnings, %d recommendations",
		status, total, len(h.Errors), len(h.Warnings), len(h.Recommendations))
}

// metadataInt reads a count that may have been decoded from JSON.
func metadataInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// ValidateConsistency scans the registry and reports structural problems. It does not
// modify the registry.
func (r *Registry) ValidateConsistency() *HealthReport {
	return r.ValidateConsistencyContext(context.Background())
}

// ValidateConsistencyContext is ValidateConsistency with a parent context for tracing.
func (r *Registry) ValidateConsistencyContext(ctx context.Context) *HealthReport {
	_, span := r.tracer.Start(ctx, "registry.ValidateConsistency")
	defer span.End()

	report := &HealthReport{
		ID:              uuid.NewString(),
		GeneratedAt:     time.Now().UTC(),
		Errors:          []Issue{},
		Warnings:        []Issue{},
		Recommendations: []string{},
		Metadata:        make(map[string]any),
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]TypeID, 0, len(r.defs))
	for id := range r.defs {
		ids = append(ids, id)
	}
	sortTypeIDs(ids)

	r.checkParentsLocked(ids, report)
	r.checkCyclesLocked(ids, report)
	r.checkBaseTypesLocked(ids, report)
	r.checkRequiredTypesLocked(report)
	r.checkConflictsLocked(report)
	r.checkAmbiguityLocked(ids, report)
	r.collectMetadataLocked(ids, report)

	span.SetAttributes(
		attribute.String("registry.report_id", report.ID),
		attribute.Int("registry.types", len(ids)),
		attribute.Int("registry.errors", len(report.Errors)),
		attribute.Int("registry.warnings", len(report.Warnings)))
	if report.HasErrors() {
		span.SetStatus(codes.Error, "registry is not structurally sound")
	}

	r.logger.Info("registry health check complete",
		zap.String("id", report.ID),
		zap.Int("errors", len(report.Errors)),
		zap.Int("warnings", len(report.Warnings)))
	return report
}

func (r *Registry) checkParentsLocked(ids []TypeID, report *HealthReport) {
	for _, id := range ids {
		def := r.defs[id]
		if !def.HasParent() {
			continue
		}
		if _, ok := r.defs[def.parent]; !ok {
			report.addError(UnresolvedParentType, id,
				"Type %s cannot find parent %s", id, def.parent)
		}
	}
}

// checkCyclesLocked reports each cycle once, however many types lead into it.
func (r *Registry) checkCyclesLocked(ids []TypeID, report *HealthReport) {
	seen := make(map[string]bool)
	for _, id := range ids {
		_, _, _, cycle := r.walkLocked(id)
		if cycle == nil {
			continue
		}
		members := canonicalCycle(cycle.Chain)
		key := formatChain(members)
		if seen[key] {
			continue
		}
		seen[key] = true
		closed := append(slices.Clone(members), members[0])
		report.addError(CycleDetected, members[0],
			"Inheritance cycle detected: %s", formatChain(closed))
	}
}

// canonicalCycle drops the closing repeat of chain and rotates it so the smallest
// qualified name comes first.
func canonicalCycle(chain []TypeID) []TypeID {
	members := chain[:len(chain)-1]
	start := 0
	for i, id := range members {
		if id.QualifiedName() < members[start].QualifiedName() {
			start = i
		}
	}
	out := make([]TypeID, 0, len(members))
	out = append(out, members[start:]...)
	return append(out, members[:start]...)
}

func (r *Registry) checkBaseTypesLocked(ids []TypeID, report *HealthReport) {
	missing := []string{}
	for _, family := range familiesOf(ids) {
		if _, ok := r.defs[NewTypeID(family, SubTypeBase)]; ok {
			continue
		}
		missing = append(missing, family)
		report.Warnings = append(report.Warnings, Issue{
			Kind:    MissingBaseType,
			Type:    family,
			Message: fmt.Sprintf("Type family '%s' has no '%s.%s' subtype", family, family, SubTypeBase),
		})
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("Register %s.%s so %s subtypes can inherit common requirements", family, SubTypeBase, family))
	}
	report.Metadata["missingBaseTypes"] = missing
}

func (r *Registry) checkRequiredTypesLocked(report *HealthReport) {
	for _, id := range r.requiredTypes {
		if _, ok := r.defs[id]; !ok {
			report.addError(MissingRequiredType, id, "Required type %s is not registered", id)
		}
	}
}

func (r *Registry) checkConflictsLocked(report *HealthReport) {
	for _, c := range r.conflicts {
		report.addWarning(DuplicateTypeRegistration, c.Type, "%s", c.String())
	}
}

// checkAmbiguityLocked warns about wildcard-name requirements declared by the same type
// that could match the same child with equal specificity. Declaration order decides
// between them.
func (r *Registry) checkAmbiguityLocked(ids []TypeID, report *HealthReport) {
	for _, id := range ids {
		reqs := r.defs[id].requirements
		for i := 0; i < len(reqs); i++ {
			if !reqs[i].IsWildcardName() {
				continue
			}
			for j := i + 1; j < len(reqs); j++ {
				a, b := reqs[i], reqs[j]
				if !b.IsWildcardName() || a.specificity() != b.specificity() || !a.overlaps(b) {
					continue
				}
				report.addWarning(AmbiguousRequirement, id,
					"Type %s has ambiguous requirements %s and %s; %s takes precedence",
					id, a.Label(), b.Label(), a.Label())
			}
		}
	}
}

func (r *Registry) collectMetadataLocked(ids []TypeID, report *HealthReport) {
	typeToSubTypes := make(map[string][]string)
	chains := make(map[string]string)
	withParent, fromBase := 0, 0

	for _, id := range ids {
		typeToSubTypes[id.Type] = append(typeToSubTypes[id.Type], id.SubType)
		def := r.defs[id]
		if !def.HasParent() {
			continue
		}
		withParent++
		if def.parent.IsBase() {
			fromBase++
		}
		levels, chain, _, cycle := r.walkLocked(id)
		if cycle != nil {
			chains[id.QualifiedName()] = formatChain(chain)
			continue
		}
		names := make([]TypeID, len(levels))
		for i, level := range levels {
			names[i] = level.id
		}
		chains[id.QualifiedName()] = formatChain(names)
	}

	families := familiesOf(ids)
	compliance := 100.0
	if len(families) > 0 {
		missing, _ := report.Metadata["missingBaseTypes"].([]string)
		compliance = float64(len(families)-len(missing)) / float64(len(families)) * 100
	}

	if len(ids) > 0 && withParent == 0 {
		report.Warnings = append(report.Warnings, Issue{
			Kind:    NoInheritance,
			Message: "No types use inheritance; common requirements are duplicated across types",
		})
		report.Recommendations = append(report.Recommendations,
			"Declare shared requirements on base types and inherit from them")
	}

	report.Metadata["totalTypes"] = len(ids)
	report.Metadata["primaryTypes"] = families
	report.Metadata["typeToSubTypes"] = typeToSubTypes
	report.Metadata["typesWithInheritance"] = withParent
	report.Metadata["typesInheritingFromBase"] = fromBase
	report.Metadata["inheritanceChains"] = chains
	report.Metadata["pendingLinks"] = len(r.deferred)
	report.Metadata["conflicts"] = len(r.conflicts)
	report.Metadata["baseTypeCompliance"] = compliance
}

// familiesOf returns the distinct type names of ids, sorted.
func familiesOf(ids []TypeID) []string {
	var families []string
	for _, id := range ids {
		if !slices.Contains(families, id.Type) {
			families = append(families, id.Type)
		}
	}
	slices.Sort(families)
	return families
}

// Err returns nil for a structurally sound report, otherwise an error wrapping
// ErrRegistryUnhealthy that lists every error.
func (h *HealthReport) Err() error {
	if h.IsStructurallySound() {
		return nil
	}
	return fmt.Errorf("%w:\n%s", ErrRegistryUnhealthy, describeIssues(h.Errors))
}

func describeIssues(issues []Issue) string {
	lines := make([]string, len(issues))
	for i, issue := range issues {
		lines[i] = issue.String()
	}
	return strings.Join(lines, "\n")
}
