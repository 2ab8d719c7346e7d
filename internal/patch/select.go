package patch

// ChoiceKind says how an operator addressed a patch.
type ChoiceKind int

const (
	// ByIndex addresses a patch through its listing index.
	ByIndex ChoiceKind = iota
	// ByName addresses a patch through its exact name.
	ByName
)

func (k ChoiceKind) String() string {
	switch k {
	case ByIndex:
		return "index"
	case ByName:
		return "name"
	}
	return "invalid"
}

// Choice is one raw operator pick, by index or by name.
type Choice struct {
	Kind  ChoiceKind
	Index int
	Name  string
}

// IndexChoice builds an index-addressed choice.
func IndexChoice(i int) Choice { return Choice{Kind: ByIndex, Index: i} }

// NameChoice builds a name-addressed choice.
func NameChoice(name string) Choice { return Choice{Kind: ByName, Name: name} }

// Answer is the operator's response for a single option. Skip means the
// option flag is not passed at all; Null means the flag is passed without
// a value. The two are deliberately distinct.
type Answer struct {
	Value string
	Null  bool
	Skip  bool
}

// AskFunc supplies the operator's answer for one option of a resolved
// record. A nil AskFunc skips option binding entirely.
type AskFunc func(rec *Record, opt Option) (Answer, error)

// Selection is one resolved choice with its bound option values. Record
// is nil when the raw choice matched nothing in the catalog; such a
// selection is still emitted so the invocation can carry the raw key
// through to the engine, which does its own validation.
type Selection struct {
	Choice  Choice
	Record  *Record
	Options *OptionValues
}

// Resolve maps raw ordered choices onto the active catalog and binds
// option values through ask. The result order always equals the input
// choice order, never the catalog order, and is reproducible given the
// same inputs and answers.
func Resolve(catalog []*Record, choices []Choice, ask AskFunc) ([]Selection, error) {
	// First catalog entry with a given index or name wins; later
	// duplicates are unreachable, matching the package dedupe rule.
	byIndex := make(map[int]*Record)
	byName := make(map[string]*Record)
	for _, rec := range catalog {
		if rec.Index != nil {
			if _, ok := byIndex[*rec.Index]; !ok {
				byIndex[*rec.Index] = rec
			}
		}
		if rec.Name != "" {
			if _, ok := byName[rec.Name]; !ok {
				byName[rec.Name] = rec
			}
		}
	}

	selections := make([]Selection, 0, len(choices))
	for _, c := range choices {
		sel := Selection{Choice: c, Options: NewOptionValues()}

		switch c.Kind {
		case ByIndex:
			sel.Record = byIndex[c.Index]
		case ByName:
			sel.Record = byName[c.Name]
		default:
			panic("patch: choice with invalid kind")
		}

		if sel.Record != nil && ask != nil {
			for _, opt := range sel.Record.Options {
				ans, err := ask(sel.Record, opt)
				if err != nil {
					return nil, err
				}
				switch {
				case ans.Skip:
				case ans.Null:
					sel.Options.SetNull(opt.Key)
				default:
					sel.Options.Set(opt.Key, ans.Value)
				}
			}
		}

		selections = append(selections, sel)
	}
	return selections, nil
}

// OptionValue is one bound option. Null marks an explicit "pass the flag
// with no value" as opposed to not passing it.
type OptionValue struct {
	Key   string
	Value string
	Null  bool
}

// OptionValues is an insertion-ordered option map owned by one Selection.
type OptionValues struct {
	entries []OptionValue
	index   map[string]int
}

// NewOptionValues returns an empty option map.
func NewOptionValues() *OptionValues {
	return &OptionValues{index: make(map[string]int)}
}

// Set binds key to a literal value, replacing an earlier binding in place.
func (v *OptionValues) Set(key, value string) {
	if i, ok := v.index[key]; ok {
		v.entries[i] = OptionValue{Key: key, Value: value}
		return
	}
	v.index[key] = len(v.entries)
	v.entries = append(v.entries, OptionValue{Key: key, Value: value})
}

// SetNull binds key to the explicit null marker.
func (v *OptionValues) SetNull(key string) {
	if i, ok := v.index[key]; ok {
		v.entries[i] = OptionValue{Key: key, Null: true}
		return
	}
	v.index[key] = len(v.entries)
	v.entries = append(v.entries, OptionValue{Key: key, Null: true})
}

// Entries returns the bindings in insertion order.
func (v *OptionValues) Entries() []OptionValue {
	if v == nil {
		return nil
	}
	return v.entries
}

// Len returns the number of bindings.
func (v *OptionValues) Len() int {
	if v == nil {
		return 0
	}
	return len(v.entries)
}
