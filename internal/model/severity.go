package model

// Severity grades an issue encountered during generation.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons and sorting. The String() method provides
// human-readable output when needed.
type Severity int

const (
	// SeverityInfo indicates informational notices with no impact on the
	// generated sitemap. Examples: non-HTML pages skipped for link
	// extraction, missing robots.txt.
	SeverityInfo Severity = iota

	// SeverityWarning indicates problems that degrade sitemap quality but
	// do not stop generation. Examples: broken links, pages that failed
	// after retries, malformed existing sitemaps.
	SeverityWarning

	// SeverityError indicates failures that caused part of the run to be
	// abandoned. Examples: unreachable discovery source, write failures
	// reported before generation aborted.
	SeverityError
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Issue types recorded during a generation run.
const (
	IssueFetchFailed       = "fetch_failed"
	IssueBrokenLink        = "broken_link"
	IssueRedirectOffSite   = "redirect_off_site"
	IssueSitemapUnparsable = "sitemap_unparsable"
	IssueRobotsUnavailable = "robots_unavailable"
	IssueNonHTML           = "non_html"
)

// issueSeverityMapping maps issue types to their severity. Unknown types
// default to SeverityInfo.
var issueSeverityMapping = map[string]Severity{
	IssueFetchFailed:       SeverityWarning,
	IssueBrokenLink:        SeverityWarning,
	IssueRedirectOffSite:   SeverityInfo,
	IssueSitemapUnparsable: SeverityWarning,
	IssueRobotsUnavailable: SeverityInfo,
	IssueNonHTML:           SeverityInfo,
}

// IssueSeverity returns the severity for an issue type.
func IssueSeverity(issueType string) Severity {
	if s, ok := issueSeverityMapping[issueType]; ok {
		return s
	}
	return SeverityInfo
}

// Issue describes a problem observed while discovering URLs or writing
// sitemaps. Issues never abort the run by themselves; they surface in the
// report so the operator can judge the sitemap's completeness.
type Issue struct {
	// Type is one of the Issue* constants.
	Type string `json:"type"`

	// Severity is the graded impact of the issue.
	Severity Severity `json:"severity"`

	// SeverityText is the string form of Severity, for JSON consumers.
	SeverityText string `json:"severity_text"`

	// Location is the URL or file the issue concerns.
	Location string `json:"location,omitempty"`

	// Detail is a human-readable description.
	Detail string `json:"detail,omitempty"`
}

// NewIssue creates an Issue with the severity derived from its type.
func NewIssue(issueType, location, detail string) Issue {
	sev := IssueSeverity(issueType)
	return Issue{
		Type:         issueType,
		Severity:     sev,
		SeverityText: sev.String(),
		Location:     location,
		Detail:       detail,
	}
}
