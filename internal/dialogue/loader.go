package dialogue

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/calldrill/calldrill/internal/scenario"
)

// ScriptInfo describes one preloaded transcript on disk.
type ScriptInfo struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Loader reads preloaded call transcripts from a directory. Transcript files
// are plain text: the first line is a title, every following non-empty line
// is "Speaker: text".
type Loader struct {
	dir string
}

// NewLoader creates a Loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// List returns the available transcripts in name order.
func (l *Loader) List() ([]ScriptInfo, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing scripts: %w", err)
	}

	var scripts []ScriptInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		title, _ := l.readTitle(e.Name())
		name := strings.TrimSuffix(e.Name(), ".txt")
		scripts = append(scripts, ScriptInfo{
			Name:        name,
			Title:       title,
			Description: titleCase(strings.ReplaceAll(strings.TrimPrefix(name, "call_"), "_", " ")),
		})
	}
	sort.Slice(scripts, func(i, j int) bool { return scripts[i].Name < scripts[j].Name })
	return scripts, nil
}

func (l *Loader) readTitle(filename string) (string, error) {
	f, err := os.Open(filepath.Join(l.dir, filename))
	if err != nil {
		return "", err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if sc.Scan() {
		return cleanTitle(sc.Text()), nil
	}
	return "", sc.Err()
}

// Default pause lengths for preloaded transcripts, which carry no timing of
// their own. Professional roles keep the shorter cadence.
const (
	professionalPauseMs = 500
	callerPauseMs       = 800
)

// Load parses the named transcript into a dialogue script for the given call
// type. A missing or unparseable transcript, or one whose speakers fall
// outside the call type's role set, is a *scenario.ScriptValidationError.
func (l *Loader) Load(name string, ct scenario.CallType) (*scenario.DialogueScript, error) {
	// The name is a reference token, never a path.
	if name != filepath.Base(name) || strings.Contains(name, "..") {
		return nil, &scenario.ScriptValidationError{Index: -1, Reason: fmt.Sprintf("invalid script name %q", name)}
	}

	f, err := os.Open(filepath.Join(l.dir, name+".txt"))
	if err != nil {
		return nil, &scenario.ScriptValidationError{Index: -1, Reason: fmt.Sprintf("script %q not found", name)}
	}
	defer f.Close()

	script := &scenario.DialogueScript{CallType: ct, Preloaded: true}

	sc := bufio.NewScanner(f)
	first := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if first {
			first = false
			continue // title line
		}
		if line == "" {
			continue
		}

		speakerPart, text, ok := strings.Cut(line, ":")
		if !ok {
			return nil, &scenario.ScriptValidationError{
				Index:  len(script.Utterances),
				Reason: fmt.Sprintf("line %q does not match \"Speaker: text\"", line),
			}
		}

		role := normalizeSpeaker(speakerPart)
		pause := callerPauseMs
		switch role {
		case scenario.RoleDispatcher, scenario.RoleDispatcher2, scenario.RoleNurse, scenario.RoleTranslator:
			pause = professionalPauseMs
		}

		if err := script.Append(scenario.Utterance{
			Speaker:      role,
			Text:         scenario.NormalizeText(strings.TrimSpace(text)),
			PauseAfterMs: pause,
			Language:     "en",
		}); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &scenario.ScriptValidationError{Index: -1, Reason: fmt.Sprintf("reading script %q: %v", name, err)}
	}

	if len(script.Utterances) == 0 {
		return nil, &scenario.ScriptValidationError{Index: -1, Reason: fmt.Sprintf("script %q contains no dialogue", name)}
	}

	if err := scenario.ValidateScript(script); err != nil {
		return nil, err
	}
	return script, nil
}

// normalizeSpeaker maps a transcript speaker label onto a role. Unrecognized
// labels default to the caller, matching how hand-written transcripts label
// witnesses and bystanders.
func normalizeSpeaker(label string) scenario.Role {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case strings.Contains(l, "dispatcher 2"), strings.Contains(l, "dispatcher2"):
		return scenario.RoleDispatcher2
	case strings.Contains(l, "dispatcher"):
		return scenario.RoleDispatcher
	case strings.Contains(l, "nurse"):
		return scenario.RoleNurse
	case strings.Contains(l, "translator"), strings.Contains(l, "interpreter"):
		return scenario.RoleTranslator
	default:
		return scenario.RoleCaller
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func cleanTitle(line string) string {
	title := strings.TrimSpace(line)
	if _, rest, ok := strings.Cut(title, "."); ok {
		return strings.TrimSpace(rest)
	}
	return title
}
