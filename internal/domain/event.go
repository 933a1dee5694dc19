package domain

import "fmt"

// Severity classifies how serious an event is.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// EventCode identifies the kind of event.
type EventCode string

const (
	CodeUnresolvedReference     EventCode = "unresolved_reference"
	CodeClassificationAmbiguity EventCode = "classification_ambiguity"
	CodeCycleDetected           EventCode = "cycle_detected"
	CodeFlaggedField            EventCode = "flagged_field"
	CodeDanglingReference       EventCode = "dangling_reference"
	CodeNodeDeleted             EventCode = "node_deleted"
	CodeNodeAdded               EventCode = "node_added"
	CodeNodeSubstituted         EventCode = "node_substituted"
	CodeNodeRebuilt             EventCode = "node_rebuilt"
	CodeTableSplit              EventCode = "table_split"
	CodeFieldRenamed            EventCode = "field_renamed"
	CodeSkipped                 EventCode = "skipped"
)

// Event is a structured record of a skip, warning, or notable action taken
// by an operation. Operations return events instead of printing, so callers
// decide whether to log, collect, or fail on them.
type Event struct {
	Severity Severity
	Code     EventCode
	Message  string
	Node     string // node id context, if any
	Field    string // field name context, if any
}

func (e Event) String() string {
	switch {
	case e.Node != "" && e.Field != "":
		return fmt.Sprintf("[%s] %s: %s (node=%s field=%s)", e.Severity, e.Code, e.Message, e.Node, e.Field)
	case e.Node != "":
		return fmt.Sprintf("[%s] %s: %s (node=%s)", e.Severity, e.Code, e.Message, e.Node)
	default:
		return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Code, e.Message)
	}
}

// Events is a collection of events with filtering helpers.
type Events []Event

// Warnings returns only events at warning severity or above.
func (es Events) Warnings() Events {
	var out Events
	for _, e := range es {
		if e.Severity == SeverityWarning || e.Severity == SeverityError {
			out = append(out, e)
		}
	}
	return out
}

// WithCode returns only events with the given code.
func (es Events) WithCode(code EventCode) Events {
	var out Events
	for _, e := range es {
		if e.Code == code {
			out = append(out, e)
		}
	}
	return out
}

// HasCode reports whether any event carries the given code.
func (es Events) HasCode(code EventCode) bool {
	for _, e := range es {
		if e.Code == code {
			return true
		}
	}
	return false
}

// Infof appends an info event with a formatted message.
func (es *Events) Infof(code EventCode, node string, format string, args ...interface{}) {
	*es = append(*es, Event{Severity: SeverityInfo, Code: code, Node: node, Message: fmt.Sprintf(format, args...)})
}

// Warnf appends a warning event with a formatted message.
func (es *Events) Warnf(code EventCode, node string, format string, args ...interface{}) {
	*es = append(*es, Event{Severity: SeverityWarning, Code: code, Node: node, Message: fmt.Sprintf(format, args...)})
}
