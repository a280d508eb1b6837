package roster

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Classification is the result of matching one roster line. It is one of
// DayMarker, Flight, Duty, OffDuty or Unrecognized.
type Classification interface {
	isClassification()
}

// DayMarker starts a new roster day, e.g. "Mon01".
type DayMarker struct {
	Day int
}

// Flight is a flight leg, e.g. "EW 123 BER 0600 0800 PMI".
type Flight struct {
	Number string
	From   string
	To     string
	Start  string // HHMM
	End    string // HHMM
}

// Duty is a single-clock activity such as a check-in, e.g. "C/I BER 0530".
type Duty struct {
	Code     string
	Location string // may be empty
	Time     string // HHMM
}

// OffDuty is a whole-day code such as "OFF" or "VAC".
type OffDuty struct {
	Code     string
	Location string // may be empty
}

type Unrecognized struct{}

func (DayMarker) isClassification()    {}
func (Flight) isClassification()       {}
func (Duty) isClassification()         {}
func (OffDuty) isClassification()      {}
func (Unrecognized) isClassification() {}

type rule struct {
	name  string
	re    *regexp.Regexp
	build func(m []string) Classification
}

// Classifier applies its rules in order; the first match wins.
type Classifier struct {
	rules []rule
}

var dayPattern = regexp.MustCompile(`^(Mon|Tue|Wed|Thu|Fri|Sat|Sun)(\d{2})`)

// NewClassifier builds the rule list for a carrier prefix, the duty markers
// and the whole-day codes.
func NewClassifier(carrier string, dutyMarkers, offCodes []string) *Classifier {
	flight := regexp.MustCompile(regexp.QuoteMeta(carrier) +
		`\s?(\d{2,4})\s([A-Z]{3})\s(\d{4})\s(\d{4})\s([A-Z]{3})`)
	duty := regexp.MustCompile(`(` + alternation(dutyMarkers) + `)\s?(?:([A-Z]{3})\s?)?(\d{4})`)
	// Anchored with a trailing boundary: codes like "F" and "U" would
	// otherwise match inside any capitalised word.
	off := regexp.MustCompile(`^(` + alternation(offCodes) + `)(?:\s+([A-Z]{3}))?(?:\s|$)`)

	return &Classifier{rules: []rule{
		{name: "day", re: dayPattern, build: func(m []string) Classification {
			day, _ := strconv.Atoi(m[2])
			return DayMarker{Day: day}
		}},
		{name: "flight", re: flight, build: func(m []string) Classification {
			return Flight{Number: m[1], From: m[2], Start: m[3], End: m[4], To: m[5]}
		}},
		{name: "duty", re: duty, build: func(m []string) Classification {
			return Duty{Code: m[1], Location: m[2], Time: m[3]}
		}},
		{name: "off", re: off, build: func(m []string) Classification {
			return OffDuty{Code: m[1], Location: m[2]}
		}},
	}}
}

// Classify matches a single line. Surrounding whitespace is ignored.
func (c *Classifier) Classify(line string) Classification {
	line = strings.TrimSpace(line)
	if line == "" {
		return Unrecognized{}
	}
	for _, r := range c.rules {
		if m := r.re.FindStringSubmatch(line); m != nil {
			return r.build(m)
		}
	}
	return Unrecognized{}
}

// alternation quotes tokens and orders them longest first so that e.g.
// "DISP_FIX" is preferred over "DISP".
func alternation(tokens []string) string {
	quoted := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t != "" {
			quoted = append(quoted, t)
		}
	}
	sort.SliceStable(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })
	for i, t := range quoted {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return strings.Join(quoted, "|")
}
