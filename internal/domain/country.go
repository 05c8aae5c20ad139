package domain

import "strings"

// DefaultCountryCode is preselected on a fresh session.
const DefaultCountryCode = "+91"

// Country is a selectable dialing prefix.
type Country struct {
	Name string `json:"country"`
	Code string `json:"code"`
	Flag string `json:"flag"`
}

var countries = []Country{
	{Name: "India", Code: "+91", Flag: "🇮🇳"},
	{Name: "United States", Code: "+1", Flag: "🇺🇸"},
	{Name: "United Kingdom", Code: "+44", Flag: "🇬🇧"},
	{Name: "Canada", Code: "+1", Flag: "🇨🇦"},
	{Name: "Australia", Code: "+61", Flag: "🇦🇺"},
	{Name: "Germany", Code: "+49", Flag: "🇩🇪"},
	{Name: "France", Code: "+33", Flag: "🇫🇷"},
	{Name: "Japan", Code: "+81", Flag: "🇯🇵"},
	{Name: "China", Code: "+86", Flag: "🇨🇳"},
	{Name: "Brazil", Code: "+55", Flag: "🇧🇷"},
}

// Countries returns a copy of the static country list.
func Countries() []Country {
	out := make([]Country, len(countries))
	copy(out, countries)
	return out
}

// KnownCountryCode reports whether code appears in the country list.
func KnownCountryCode(code string) bool {
	for _, c := range countries {
		if c.Code == code {
			return true
		}
	}
	return false
}

// DigitsOnly strips everything except ASCII digits.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FullNumber concatenates the prefix and the subscriber number.
func FullNumber(countryCode, phoneNumber string) string {
	return countryCode + phoneNumber
}
