package usecase

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
)

const (
	dayKeyLayout   = "2006-01-02"
	timeLayout     = "15:04"
	periodLayout   = "2006-01-02 15:04"
	entryEllipsis  = "…"
	entrySeparator = " — "
)

// ReportOptions configures BuildReport
type ReportOptions struct {
	Location         *time.Location
	TimezoneName     string
	MaxPerChannel    int
	GeneralMode      domain.GeneralMode
	EmptyChannels    domain.EmptyChannelPolicy
	GeneralMaxLength int
	Labels           domain.ReportLabels
	Noise            *NoiseFilter
	Condenser        ChannelCondenser
}

// NewReportOptions returns the default options for a timezone; unknown zones fall back to UTC
func NewReportOptions(timezoneName string) ReportOptions {
	if timezoneName == "" {
		timezoneName = domain.DefaultTimezone
	}
	loc, err := time.LoadLocation(timezoneName)
	if err != nil {
		fmt.Printf("[Report] Unknown timezone %q, using UTC: %v\n", timezoneName, err)
		loc = time.UTC
		timezoneName = "UTC"
	}
	labels := domain.EnglishLabels()
	noise := NewNoiseFilter()
	return ReportOptions{
		Location:         loc,
		TimezoneName:     timezoneName,
		MaxPerChannel:    domain.DefaultMaxPerChannel,
		GeneralMode:      domain.GeneralModeCondensed,
		EmptyChannels:    domain.EmptyChannelPlaceholder,
		GeneralMaxLength: domain.DefaultGeneralCondenseLen,
		Labels:           labels,
		Noise:            noise,
		Condenser:        NewCondenser(labels, noise),
	}
}

func (o ReportOptions) withDefaults() ReportOptions {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.TimezoneName == "" {
		o.TimezoneName = o.Location.String()
	}
	if o.MaxPerChannel <= 0 {
		o.MaxPerChannel = domain.DefaultMaxPerChannel
	}
	if o.GeneralMode == "" {
		o.GeneralMode = domain.GeneralModeCondensed
	}
	if o.EmptyChannels == "" {
		o.EmptyChannels = domain.EmptyChannelPlaceholder
	}
	if o.GeneralMaxLength <= 0 {
		o.GeneralMaxLength = domain.DefaultGeneralCondenseLen
	}
	if o.Labels.Title == "" {
		o.Labels = domain.EnglishLabels()
	}
	if o.Noise == nil {
		o.Noise = defaultNoiseFilter
	}
	if o.Condenser == nil {
		o.Condenser = NewCondenser(o.Labels, o.Noise)
	}
	return o
}

// dayBucket holds the messages of one local calendar day
type dayBucket struct {
	important map[string][]domain.StoredMessage
	general   map[string][]domain.StoredMessage
}

func (b *dayBucket) channels(category domain.Category) map[string][]domain.StoredMessage {
	if category == domain.CategoryImportant {
		return b.important
	}
	return b.general
}

// BuildReport renders the digest of snap. It is a pure transform: the output depends only on
// the snapshot and the options, never on the wall clock.
func BuildReport(snap *domain.Snapshot, opts ReportOptions) string {
	opts = opts.withDefaults()
	if snap == nil {
		snap = domain.NewSnapshot(nil)
	}

	days := make(map[string]*dayBucket)
	bucket := func(ts time.Time) *dayBucket {
		key := ts.In(opts.Location).Format(dayKeyLayout)
		b, ok := days[key]
		if !ok {
			b = &dayBucket{
				important: make(map[string][]domain.StoredMessage),
				general:   make(map[string][]domain.StoredMessage),
			}
			days[key] = b
		}
		return b
	}

	hasContent := false
	for _, category := range domain.Categories {
		for _, channel := range snap.ChannelNames(category) {
			raw := snap.Messages(category, channel)
			kept := filterMessages(raw, opts.Noise)

			if len(kept) == 0 {
				if category == domain.CategoryGeneral && opts.EmptyChannels == domain.EmptyChannelPlaceholder {
					if last, ok := lastTimestamp(raw); ok {
						b := bucket(last)
						if _, exists := b.general[channel]; !exists {
							b.general[channel] = []domain.StoredMessage{}
						}
					}
				}
				continue
			}

			for _, m := range kept {
				if !m.HasTimestamp() {
					continue
				}
				b := bucket(m.Timestamp)
				byChannel := b.channels(category)
				byChannel[channel] = append(byChannel[channel], m)
				hasContent = true
			}
		}
	}

	var sb strings.Builder
	writeHeader(&sb, snap, opts)

	if !hasContent {
		sb.WriteString("\n")
		sb.WriteString(opts.Labels.NoContent)
		sb.WriteString("\n")
		return sb.String()
	}

	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		day, _ := time.ParseInLocation(dayKeyLayout, key, opts.Location)
		b := days[key]

		sb.WriteString("\n=== ")
		sb.WriteString(opts.Labels.FormatDay(day))
		sb.WriteString(" ===\n")

		if len(b.important) > 0 {
			sb.WriteString(opts.Labels.ImportantHeading + "\n")
			for _, channel := range sortedKeys(b.important) {
				sb.WriteString("  #" + channel + "\n")
				for _, m := range lastK(b.important[channel], opts.MaxPerChannel) {
					writeEntry(&sb, m, opts.Location, domain.ImportantContentMaxRunes)
				}
			}
		}

		if len(b.general) > 0 {
			sb.WriteString(opts.Labels.GeneralHeading + "\n")
			for _, channel := range sortedKeys(b.general) {
				sb.WriteString("  #" + channel + "\n")
				msgs := lastK(b.general[channel], opts.MaxPerChannel)
				switch {
				case len(msgs) == 0:
					sb.WriteString("    " + opts.Labels.ChannelNoContent + "\n")
				case opts.GeneralMode == domain.GeneralModeList:
					for _, m := range msgs {
						writeEntry(&sb, m, opts.Location, domain.GeneralListEntryMaxRunes)
					}
				default:
					sb.WriteString("    " + opts.Condenser.CondenseChannel(msgs, opts.GeneralMaxLength) + "\n")
				}
			}
		}
	}

	return sb.String()
}

func writeHeader(sb *strings.Builder, snap *domain.Snapshot, opts ReportOptions) {
	sb.WriteString("** " + opts.Labels.Title + " **\n")
	if oldest, newest, ok := snap.Bounds(); ok {
		fmt.Fprintf(sb, "%s: %s → %s (%s)\n", opts.Labels.Period,
			oldest.In(opts.Location).Format(periodLayout),
			newest.In(opts.Location).Format(periodLayout),
			opts.TimezoneName)
	}
	fmt.Fprintf(sb, "%s: %d\n", opts.Labels.Count, snap.Total())
}

func writeEntry(sb *strings.Builder, m domain.StoredMessage, loc *time.Location, maxRunes int) {
	sb.WriteString("    ")
	sb.WriteString(m.Timestamp.In(loc).Format(timeLayout))
	sb.WriteString(entrySeparator)
	sb.WriteString(m.Author)
	sb.WriteString(": ")
	sb.WriteString(truncateRunes(m.Content, maxRunes, entryEllipsis))
	sb.WriteString("\n")
}

// filterMessages cleans content, drops noise, then drops back-to-back duplicates
// (same author and same cleaned content). Non-adjacent duplicates are kept.
func filterMessages(msgs []domain.StoredMessage, noise *NoiseFilter) []domain.StoredMessage {
	var kept []domain.StoredMessage
	for _, m := range msgs {
		if noise.IsNoise(m.Content) {
			continue
		}
		cleaned := domain.StoredMessage{Author: m.Author, Content: CleanText(m.Content), Timestamp: m.Timestamp}
		if n := len(kept); n > 0 && kept[n-1].Author == cleaned.Author && kept[n-1].Content == cleaned.Content {
			continue
		}
		kept = append(kept, cleaned)
	}
	return kept
}

// lastK returns the k most recent messages in chronological order
func lastK(msgs []domain.StoredMessage, k int) []domain.StoredMessage {
	sorted := make([]domain.StoredMessage, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	if len(sorted) > k {
		sorted = sorted[len(sorted)-k:]
	}
	return sorted
}

func lastTimestamp(msgs []domain.StoredMessage) (time.Time, bool) {
	var last time.Time
	found := false
	for _, m := range msgs {
		if m.HasTimestamp() && (!found || m.Timestamp.After(last)) {
			last = m.Timestamp
			found = true
		}
	}
	return last, found
}

func sortedKeys(m map[string][]domain.StoredMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncateRunes(s string, n int, marker string) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + marker
}
