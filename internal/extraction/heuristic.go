package extraction

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/fyrsmithlabs/minuted/internal/dates"
	"github.com/fyrsmithlabs/minuted/internal/roster"
)

// minVariantLen guards against noisy short-name false positives: a match
// variant shorter than 3 characters is never accepted.
const minVariantLen = 3

// defaultDueDays is the fallback deadline applied when a task clearly has an
// assignee but no resolvable date.
const defaultDueDays = 7

// placeholderTask is emitted by the lenient second pass for lines that
// mention a person but yield no parseable task.
const placeholderTask = "Task from meeting"

// Task description patterns, applied in order to the text after a name
// mention. First non-empty capture wins.
var actionVerbPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:needs?|have|has|asked)\s+to\s+(.*?)(?:\.|$)`),
	regexp.MustCompile(`(?i)(?:complete|do|finish|prepare|submit|review)\s+(.*?)(?:\.|$)`),
	regexp.MustCompile(`(?i)(?:i|we)\s+(?:need|want|expect)\s+you\s+to\s+(.*?)(?:\.|$)`),
}

var (
	connectorPattern    = regexp.MustCompile(`[:,.]\s*(.*?)(?:\.|$)`)
	leadingPunctPattern = regexp.MustCompile(`^[,.\s:]+`)
	datePhrasePattern   = regexp.MustCompile(`(?i)\s*\b(?:by|before|within|due|on)\b\s+(.+)$`)
)

// HeuristicExtractor scans transcript lines for roster-name mentions and
// derives one action item per mentioned name per line, without any external
// model call. It is a bounded best-effort parser for short, imperative
// meeting utterances.
type HeuristicExtractor struct{}

// NewHeuristicExtractor creates a heuristic extractor.
func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{}
}

// mention records one roster-name hit within a line.
type mention struct {
	entry  roster.Entry
	name   string // lowercased roster name
	offset int
	length int // length of the matched variant
}

// Extract derives action items from the transcript. When the full first pass
// yields nothing, a lenient second pass emits a placeholder item for every
// line that mentions any roster name, guaranteeing at least one item whenever
// a person is mentioned.
func (h *HeuristicExtractor) Extract(ctx context.Context, transcript string, entries []roster.Entry, ref time.Time) (*MeetingSummary, error) {
	lines := strings.Split(transcript, "\n")

	var items []ActionItem
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, m := range findMentions(line, entries) {
			item, ok := h.itemFromMention(line, m, ref)
			if !ok {
				continue
			}
			items = append(items, item)
		}
	}

	if len(items) == 0 {
		items = h.placeholderPass(lines, entries, ref)
	}

	return &MeetingSummary{
		Summary:     firstSentence(transcript),
		ActionItems: Normalize(items),
	}, nil
}

// findMentions locates roster-name mentions in one line. Three variants are
// tried per name (exact, first token, whitespace-stripped), each subject to
// the minimum-length guard; a name counts at most once per line. Results are
// ordered by character offset.
func findMentions(line string, entries []roster.Entry) []mention {
	lower := strings.ToLower(line)

	var found []mention
	for _, entry := range entries {
		name := strings.ToLower(entry.Name)
		variants := []string{name}
		if fields := strings.Fields(name); len(fields) > 1 {
			variants = append(variants, fields[0], strings.Join(fields, ""))
		}

		for _, variant := range variants {
			if len(variant) < minVariantLen {
				continue
			}
			pos := strings.Index(lower, variant)
			if pos < 0 {
				continue
			}
			found = append(found, mention{entry: entry, name: name, offset: pos, length: len(variant)})
			break
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].offset < found[j].offset })
	return found
}

// itemFromMention derives the task text and due date for one mention.
func (h *HeuristicExtractor) itemFromMention(line string, m mention, ref time.Time) (ActionItem, bool) {
	after := strings.TrimSpace(line[m.offset+m.length:])
	if after == "" {
		return ActionItem{}, false
	}

	task := stripDatePhrase(extractTask(after), ref)
	if task == "" {
		return ActionItem{}, false
	}

	return ActionItem{
		AssigneeName:  m.name,
		AssigneeEmail: m.entry.Email,
		Task:          task,
		DueDate:       resolveDue(line, ref),
	}, true
}

// extractTask applies the pattern cascade to the text following a mention:
// action-verb patterns, then the text after the first connector, then the raw
// remainder with leading punctuation stripped.
func extractTask(after string) string {
	for _, re := range actionVerbPatterns {
		if m := re.FindStringSubmatch(after); m != nil {
			if task := strings.TrimSpace(m[1]); task != "" {
				return task
			}
		}
	}
	if m := connectorPattern.FindStringSubmatch(after); m != nil {
		if task := strings.TrimSpace(m[1]); task != "" {
			return task
		}
	}
	return strings.TrimSpace(leadingPunctPattern.ReplaceAllString(after, ""))
}

// stripDatePhrase removes a trailing deadline phrase from task text, so
// "finish the report by October 20th" yields "finish the report". The phrase
// is only cut when it actually resolves to a date; "stop by the office" is
// left alone.
func stripDatePhrase(task string, ref time.Time) string {
	m := datePhrasePattern.FindStringSubmatchIndex(task)
	if m == nil {
		return task
	}
	tail := task[m[2]:m[3]]
	if _, ok := dates.Resolve(tail, ref); !ok {
		return task
	}
	stripped := strings.TrimSpace(task[:m[0]])
	if stripped == "" {
		return task
	}
	return stripped
}

// placeholderPass emits a generic item for every line mentioning any roster
// name. It only runs after a completely empty first pass over the whole
// transcript.
func (h *HeuristicExtractor) placeholderPass(lines []string, entries []roster.Entry, ref time.Time) []ActionItem {
	var items []ActionItem
	for _, line := range lines {
		lower := strings.ToLower(line)
		for _, entry := range entries {
			name := strings.ToLower(entry.Name)
			if name == "" || !strings.Contains(lower, name) {
				continue
			}
			items = append(items, ActionItem{
				AssigneeName:  name,
				AssigneeEmail: entry.Email,
				Task:          placeholderTask,
				DueDate:       defaultDue(ref),
			})
		}
	}
	return items
}

// resolveDue resolves a date from the full line, falling back to the 7-day
// default. The default lives here, not in the dates package, so "no date
// found" stays distinguishable from "defaulted".
func resolveDue(line string, ref time.Time) string {
	if d, ok := dates.Resolve(line, ref); ok {
		return d.Format(DateLayout)
	}
	return defaultDue(ref)
}

func defaultDue(ref time.Time) string {
	return ref.AddDate(0, 0, defaultDueDays).Format(DateLayout)
}

// Ensure HeuristicExtractor implements Extractor.
var _ Extractor = (*HeuristicExtractor)(nil)
