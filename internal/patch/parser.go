package patch

import (
	"regexp"
	"strconv"
	"strings"
)

// Parser states. The listing is folded line by line; section headers move
// the fold between states and flush any pending option schema.
type parseState int

const (
	stateOutside parseState = iota
	stateOptions
	statePossibleValues
	stateCompat
	stateCompatVersions
)

var (
	indexLineRe    = regexp.MustCompile(`^\s*Index:\s*(\d+)\s*$`)
	nameLineRe     = regexp.MustCompile(`^\s*Name:\s*(.+?)\s*$`)
	descLineRe     = regexp.MustCompile(`^\s*Description:\s*(.*?)\s*$`)
	enabledLineRe  = regexp.MustCompile(`^\s*Enabled:\s*(true|false)\s*$`)
	packagesLineRe = regexp.MustCompile(`^\s*Packages:\s*(.+?)\s*$`)

	optionsHdrRe   = regexp.MustCompile(`^\s*Options?\s*:\s*$`)
	keyLineRe      = regexp.MustCompile(`^\s*Key:\s*(.+?)\s*$`)
	defaultLineRe  = regexp.MustCompile(`^\s*Default:\s*(.+?)\s*$`)
	typeLineRe     = regexp.MustCompile(`^\s*Type:\s*(.+?)\s*$`)
	requiredLineRe = regexp.MustCompile(`^\s*Required:\s*(true|false)\s*$`)
	titleLineRe    = regexp.MustCompile(`^\s*Title:\s*(.+?)\s*$`)
	possibleHdrRe  = regexp.MustCompile(`^\s*Possible values\s*:\s*$`)

	compatHdrRe         = regexp.MustCompile(`^\s*Compatible packages\s*:\s*$`)
	compatPackageRe     = regexp.MustCompile(`^\s*Package(?:\s+name)?\s*:\s*(.+?)\s*$`)
	compatVersionsHdrRe = regexp.MustCompile(`^\s*Compatible versions\s*:\s*$`)

	// fieldHdrRe marks the headers that terminate a multi-line description.
	fieldHdrRe = regexp.MustCompile(`^\s*(?:Enabled|Options|Index|Name|Packages|Compatible packages)\s*:`)

	// heuristicOptRe extracts "key (Type) ... default=VALUE" shaped lines
	// when the listing carries no structured option fields.
	heuristicOptRe = regexp.MustCompile(`(?i)^\s*(?:[-*]\s*)?([A-Za-z0-9_.-]+)(?:\s*\(\s*([A-Za-z0-9_\[\]., ]+?)\s*\))?(?:.*?\bdefault\s*[:=]\s*([^\s,]+))?`)
)

// Parse splits a full list-patches output and parses every block. The
// returned catalog preserves the listing's order.
func Parse(text string) []*Record {
	blocks := SplitBlocks(text)
	records := make([]*Record, 0, len(blocks))
	for _, block := range blocks {
		records = append(records, ParseBlock(block))
	}
	return records
}

// ParseBlock converts one raw block into a Record. It never fails: missing
// fields stay unset and malformed option sub-blocks are skipped.
func ParseBlock(block string) *Record {
	rec := &Record{
		CompatibleVersions: make(map[string][]string),
		Raw:                strings.Trim(block, "\n"),
	}

	state := stateOutside
	var pending *Option
	var optionLines []string
	var descLines []string
	inDesc := false
	descDone := false
	curPkg := ""

	flush := func() {
		if pending != nil && pending.Key != "" {
			dup := false
			for _, o := range rec.Options {
				if o.Key == pending.Key {
					dup = true
					break
				}
			}
			if !dup {
				rec.Options = append(rec.Options, *pending)
			}
		}
		pending = nil
	}

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimRight(line, "\r")

		// Section headers win over any state.
		if optionsHdrRe.MatchString(line) {
			flush()
			state = stateOptions
			inDesc = false
			continue
		}
		if compatHdrRe.MatchString(line) {
			flush()
			state = stateCompat
			curPkg = ""
			inDesc = false
			continue
		}

		switch state {
		case stateOptions, statePossibleValues:
			if s := strings.TrimSpace(line); s != "" {
				optionLines = append(optionLines, s)
			}
			if m := keyLineRe.FindStringSubmatch(line); m != nil {
				flush()
				pending = &Option{Key: m[1]}
				state = stateOptions
				continue
			}
			if pending == nil {
				continue
			}
			if m := defaultLineRe.FindStringSubmatch(line); m != nil {
				v := m[1]
				pending.Default = &v
				state = stateOptions
				continue
			}
			if m := typeLineRe.FindStringSubmatch(line); m != nil {
				pending.Type = m[1]
				state = stateOptions
				continue
			}
			if m := requiredLineRe.FindStringSubmatch(line); m != nil {
				v := m[1] == "true"
				pending.Required = &v
				state = stateOptions
				continue
			}
			if m := titleLineRe.FindStringSubmatch(line); m != nil {
				pending.Title = m[1]
				state = stateOptions
				continue
			}
			if m := descLineRe.FindStringSubmatch(line); m != nil {
				pending.Description = m[1]
				state = stateOptions
				continue
			}
			if possibleHdrRe.MatchString(line) {
				state = statePossibleValues
				continue
			}
			if state == statePossibleValues {
				if v := strings.TrimSpace(line); v != "" {
					pending.PossibleValues = append(pending.PossibleValues, v)
				}
			}

		case stateCompat, stateCompatVersions:
			if m := compatPackageRe.FindStringSubmatch(line); m != nil {
				curPkg = m[1]
				rec.addPackage(curPkg)
				state = stateCompat
				continue
			}
			if compatVersionsHdrRe.MatchString(line) {
				state = stateCompatVersions
				continue
			}
			if state == stateCompatVersions && curPkg != "" {
				if v := strings.TrimSpace(line); v != "" {
					rec.CompatibleVersions[curPkg] = append(rec.CompatibleVersions[curPkg], v)
				}
			}

		default:
			if inDesc {
				if fieldHdrRe.MatchString(line) {
					inDesc = false
				} else {
					descLines = append(descLines, line)
					continue
				}
			}
			if m := indexLineRe.FindStringSubmatch(line); m != nil {
				if rec.Index == nil {
					n, _ := strconv.Atoi(m[1])
					rec.Index = &n
				}
				continue
			}
			if m := nameLineRe.FindStringSubmatch(line); m != nil {
				if rec.Name == "" {
					rec.Name = m[1]
				}
				continue
			}
			if m := enabledLineRe.FindStringSubmatch(line); m != nil {
				if rec.Enabled == nil {
					v := m[1] == "true"
					rec.Enabled = &v
				}
				continue
			}
			if m := descLineRe.FindStringSubmatch(line); m != nil {
				if !descDone {
					descDone = true
					inDesc = true
					descLines = append(descLines, m[1])
				}
				continue
			}
			if m := packagesLineRe.FindStringSubmatch(line); m != nil {
				for _, p := range strings.Split(m[1], ",") {
					rec.addPackage(strings.TrimSpace(p))
				}
				continue
			}
		}
	}
	flush()

	rec.Description = strings.TrimSpace(strings.Join(descLines, "\n"))

	if len(rec.Options) == 0 && len(optionLines) > 0 {
		rec.Options = parseOptionsHeuristic(optionLines)
	}

	rec.Universal = len(rec.Packages) == 0
	return rec
}

// parseOptionsHeuristic extracts option schemas from free-form option
// lines: a leading key token, an optional parenthesized type hint, and an
// optional default=VALUE suffix. First occurrence of a key wins.
func parseOptionsHeuristic(lines []string) []Option {
	var opts []Option
	seen := make(map[string]struct{})
	for _, ln := range lines {
		m := heuristicOptRe.FindStringSubmatch(strings.TrimSpace(ln))
		if m == nil || m[1] == "" {
			continue
		}
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		opt := Option{Key: m[1], Type: m[2]}
		if m[3] != "" {
			v := m[3]
			opt.Default = &v
		}
		opts = append(opts, opt)
	}
	return opts
}
