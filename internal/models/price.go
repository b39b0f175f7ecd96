package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	ErrNoDigits        = errors.New("price guide contains no digits")
	ErrPriceOutOfRange = errors.New("price guide is out of range")
)

// ParsePriceGuide keeps only the ASCII digits of raw and parses them as an integer,
// so "kr 1.200.000,-" becomes 1200000.
func ParsePriceGuide(raw string) (int64, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	if digits.Len() == 0 {
		return 0, ErrNoDigits
	}

	price, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrPriceOutOfRange, raw)
	}
	return price, nil
}

var priceTag = language.MustParse("nb")

// FormatPriceGuide renders a price with Norwegian digit grouping, e.g. "1 200 000 kr".
func FormatPriceGuide(price int64) string {
	return message.NewPrinter(priceTag).Sprintf("%d kr", price)
}
