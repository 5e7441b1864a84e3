// internal/domain/symbol/dictionary.go

package symbol

import "strings"

// Dictionary is an immutable snapshot of the valid ticker universe plus a
// stoplist of tokens that collide with ordinary English. It is built once via
// NewDictionary and never mutated, so it is safe to share across goroutines.
type Dictionary struct {
	symbols  map[string]struct{}
	stoplist map[string]struct{}
}

// NewDictionary builds a dictionary from valid symbols and stoplisted tokens.
// Symbols are upper-cased; entries longer than 5 characters or empty are dropped.
func NewDictionary(symbols []string, stoplist []string) *Dictionary {
	d := &Dictionary{
		symbols:  make(map[string]struct{}, len(symbols)),
		stoplist: make(map[string]struct{}, len(stoplist)),
	}

	for _, s := range stoplist {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			d.stoplist[s] = struct{}{}
		}
	}

	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || len(s) > 5 {
			continue
		}
		if _, stopped := d.stoplist[s]; stopped {
			continue
		}
		d.symbols[s] = struct{}{}
	}

	return d
}

// Contains reports whether ticker is a valid, non-stoplisted symbol.
func (d *Dictionary) Contains(ticker string) bool {
	_, ok := d.symbols[strings.ToUpper(ticker)]
	return ok
}

// Stoplisted reports whether the token is on the exclusion list.
func (d *Dictionary) Stoplisted(token string) bool {
	_, ok := d.stoplist[strings.ToUpper(token)]
	return ok
}

// Len returns the number of valid symbols.
func (d *Dictionary) Len() int {
	return len(d.symbols)
}

// DefaultStoplist covers common words, community slang, and abbreviations that
// are also listed symbols and would otherwise flood extraction with noise.
func DefaultStoplist() []string {
	return []string{
		"A", "ALL", "FOR", "ON", "OR", "IT", "DD", "YOLO", "RH", "OPEN",
		"ARE", "ONE", "CAR", "WELL", "RUN", "IN", "GO", "SO", "UP", "NOW",
		"OUT", "LIVE", "AT", "BE", "BY", "DO", "HE", "IF", "MY", "NO",
		"OF", "TO", "WE", "AN", "AS", "HI", "IS", "ME", "US", "AM", "EG",
		"CEO", "CFO", "IPO", "ETF", "GDP", "USA", "LLC", "INC", "EPS",
		"ATH", "FUD", "IMO", "LOL", "OMG", "SEC", "WSB", "TD", "TA", "FA",
		"PT", "PM", "ER", "EDIT", "POST", "PUMP", "HOLD", "SELL", "CASH",
	}
}
