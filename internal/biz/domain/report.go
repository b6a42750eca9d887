package domain

import "time"

// GeneralMode selects how general channels are rendered
type GeneralMode string

const (
	GeneralModeCondensed GeneralMode = "condensed"
	GeneralModeList      GeneralMode = "list"
)

// EmptyChannelPolicy decides what happens to a general channel whose messages are all noise
type EmptyChannelPolicy string

const (
	EmptyChannelPlaceholder EmptyChannelPolicy = "placeholder"
	EmptyChannelOmit        EmptyChannelPolicy = "omit"
)

const (
	DefaultMaxPerChannel      = 8
	DefaultTimezone           = "Europe/Brussels"
	ImportantContentMaxRunes  = 240
	GeneralListEntryMaxRunes  = 200
	DefaultGeneralCondenseLen = 400
)

// ReportLabels holds the wording of a rendered report
type ReportLabels struct {
	Title            string
	Period           string
	Count            string
	ImportantHeading string
	GeneralHeading   string
	NoContent        string
	ChannelNoContent string
	Summarized       string
	Ellipsis         string
	Weekdays         [7]string  // Sunday first, as time.Weekday
	Months           [12]string // January first
}

// EnglishLabels returns the built-in English wording
func EnglishLabels() ReportLabels {
	return ReportLabels{
		Title:            "Daily digest",
		Period:           "Period",
		Count:            "Messages collected",
		ImportantHeading: "Important channels",
		GeneralHeading:   "General channels",
		NoContent:        "No relevant content for this period.",
		ChannelNoContent: "(no relevant content)",
		Summarized:       "(summarized)",
		Ellipsis:         " [...]",
		Weekdays:         [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		Months: [12]string{"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December"},
	}
}

// FrenchLabels returns the built-in French wording
func FrenchLabels() ReportLabels {
	return ReportLabels{
		Title:            "Résumé quotidien",
		Period:           "Période",
		Count:            "Messages collectés",
		ImportantHeading: "Canaux importants",
		GeneralHeading:   "Canaux généraux",
		NoContent:        "Aucun contenu pertinent pour cette période.",
		ChannelNoContent: "(aucun contenu pertinent)",
		Summarized:       "(résumé...)",
		Ellipsis:         " [...]",
		Weekdays:         [7]string{"Dimanche", "Lundi", "Mardi", "Mercredi", "Jeudi", "Vendredi", "Samedi"},
		Months: [12]string{"janvier", "février", "mars", "avril", "mai", "juin",
			"juillet", "août", "septembre", "octobre", "novembre", "décembre"},
	}
}

// LabelsFor returns the built-in labels of a language, English when unknown
func LabelsFor(lang string) ReportLabels {
	if lang == "fr" {
		return FrenchLabels()
	}
	return EnglishLabels()
}

// FormatDay renders a date heading such as "Sunday 05 January 2025"
func (l ReportLabels) FormatDay(t time.Time) string {
	return l.Weekdays[t.Weekday()] + " " + t.Format("02") + " " + l.Months[t.Month()-1] + " " + t.Format("2006")
}

// DigestStatus is the outcome of a digest run
type DigestStatus string

const (
	DigestStatusSuccess DigestStatus = "success"
	DigestStatusFailed  DigestStatus = "failed"
	DigestStatusSkipped DigestStatus = "skipped"
)

// DigestResult is the categorized result of one digest run
type DigestResult struct {
	RunID        string       `json:"run_id"`
	Status       DigestStatus `json:"status"`
	Kind         ErrorKind    `json:"kind,omitempty"`
	Err          error        `json:"-"`
	Error        string       `json:"error,omitempty"`
	Sink         string       `json:"sink"`
	Report       string       `json:"report,omitempty"`
	MessageCount int          `json:"message_count"`
	SnapshotPath string       `json:"snapshot_path,omitempty"`
	Warnings     []string     `json:"warnings,omitempty"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
}

// Succeeded reports whether the report was delivered
func (r *DigestResult) Succeeded() bool {
	return r.Status == DigestStatusSuccess
}

// Fail marks the result failed with a categorized error
func (r *DigestResult) Fail(kind ErrorKind, err error) {
	r.Status = DigestStatusFailed
	r.Kind = kind
	r.Err = &DigestError{Kind: kind, Err: err}
	if err != nil {
		r.Error = err.Error()
	}
}

// Warn records a non-blocking problem
func (r *DigestResult) Warn(kind ErrorKind, err error) {
	r.Warnings = append(r.Warnings, (&DigestError{Kind: kind, Err: err}).Error())
}
