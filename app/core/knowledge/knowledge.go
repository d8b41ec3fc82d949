package knowledge

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"unicode/utf8"

	"guidepost/app/pkg/logger"
)

// Placeholder is used when no knowledge file is available.
const Placeholder = "No specific domain knowledge provided."

var phasePattern = regexp.MustCompile(`PHASE (\d+): (.*?)\s*\(([^)]+)\)`)

// Phase is one implementation phase parsed from the knowledge blob.
// Description, key activities and deliverables are rendered by the phase
// detail view but are never populated by the parser.
type Phase struct {
	ID            string
	Name          string
	Description   string
	KeyActivities []string
	Deliverables  []string
}

// Library holds the knowledge blob and the phases parsed out of it.
// It is built once at startup and immutable afterwards.
type Library struct {
	Content string
	Phases  map[string]Phase
}

// Load reads the knowledge file. A missing file is not fatal: the library
// degrades to a placeholder blob with no phases.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("Knowledge file %s not found, using placeholder", path)
			return New(Placeholder), nil
		}
		return nil, err
	}
	lib := New(string(data))
	if len(lib.Phases) == 0 {
		logger.Info("No phase information found in %s", path)
	} else {
		logger.Info("Found %d implementation phases in %s", len(lib.Phases), path)
	}
	return lib, nil
}

// New parses phase headings matching `PHASE <number>: <name> (<timeline>)`
// out of the blob. A repeated phase number overwrites the earlier record.
func New(content string) *Library {
	lib := &Library{
		Content: content,
		Phases:  map[string]Phase{},
	}
	for _, m := range phasePattern.FindAllStringSubmatch(content, -1) {
		num := m[1]
		lib.Phases[num] = Phase{
			ID:   num,
			Name: fmt.Sprintf("%s (%s)", m[2], m[3]),
		}
	}
	return lib
}

// PhaseIDs returns known phase ids in ascending numeric order, so that
// phase-bucket matching is deterministic.
func (l *Library) PhaseIDs() []string {
	ids := make([]string, 0, len(l.Phases))
	for id := range l.Phases {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[i])
		b, _ := strconv.Atoi(ids[j])
		return a < b
	})
	return ids
}

// Excerpt returns at most maxChars characters of the blob for prompt
// embedding. Content past the cutoff is discarded, not summarized.
func (l *Library) Excerpt(maxChars int) string {
	if maxChars <= 0 || len(l.Content) <= maxChars {
		return l.Content
	}
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(l.Content[cut]) {
		cut--
	}
	return l.Content[:cut] + "... (abbreviated for prompt length)"
}
