package schedule

import (
	"strings"
	"unicode"
)

// BedroomClass is the canonical unit-size key of a payment standard row.
type BedroomClass string

const (
	SRO BedroomClass = "SRO"
	BR0 BedroomClass = "0BR"
	BR1 BedroomClass = "1BR"
	BR2 BedroomClass = "2BR"
	BR3 BedroomClass = "3BR"
	BR4 BedroomClass = "4BR"
	BR5 BedroomClass = "5BR"
	BR6 BedroomClass = "6BR"
	BR7 BedroomClass = "7BR"
	BR8 BedroomClass = "8BR"
)

// Classes lists every bedroom class in display order.
var Classes = []BedroomClass{SRO, BR0, BR1, BR2, BR3, BR4, BR5, BR6, BR7, BR8}

// bedroomVariants maps whitespace-free, uppercased descriptors to classes.
var bedroomVariants = map[string]BedroomClass{
	"SRO": SRO,

	"0": BR0, "0BR": BR0, "0BED": BR0, "0BEDS": BR0, "STUDIO": BR0,

	"1": BR1, "1BR": BR1, "1BED": BR1, "1BEDS": BR1,
	"2": BR2, "2BR": BR2, "2BED": BR2, "2BEDS": BR2,
	"3": BR3, "3BR": BR3, "3BED": BR3, "3BEDS": BR3,
	"4": BR4, "4BR": BR4, "4BED": BR4, "4BEDS": BR4,
	"5": BR5, "5BR": BR5, "5BED": BR5, "5BEDS": BR5,
	"6": BR6, "6BR": BR6, "6BED": BR6, "6BEDS": BR6,
	"7": BR7, "7BR": BR7, "7BED": BR7, "7BEDS": BR7,
	"8": BR8, "8BR": BR8, "8BED": BR8, "8BEDS": BR8,
}

// NormalizeBedroom maps a free-form bedroom descriptor ("1 bed", "Studio",
// "2BR") onto its canonical class. The descriptor is uppercased and stripped
// of all whitespace before lookup.
func NormalizeBedroom(descriptor string) (BedroomClass, bool) {
	key := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, descriptor)
	c, ok := bedroomVariants[key]
	return c, ok
}

// Label renders the class the way payment standard tables print it ("1 BR").
func (c BedroomClass) Label() string {
	if c == SRO || len(c) < 3 {
		return string(c)
	}
	return string(c[:len(c)-2]) + " BR"
}
