package model

import (
	"fmt"
	"strconv"
	"time"
)

// Term codes follow the YYYYTT convention used by the Student Records
// system: 10 is spring, 20 is summer, 30 is fall.
const (
	SpringTermCode = 10
	SummerTermCode = 20
	FallTermCode   = 30
)

// TermCodeForMonth maps a calendar month to the term in session.
func TermCodeForMonth(month time.Month) int {
	switch {
	case month >= time.September:
		return FallTermCode
	case month >= time.May:
		return SummerTermCode
	default:
		return SpringTermCode
	}
}

// Term combines a year and a term code into a YYYYTT term.
func Term(year, termCode int) int {
	term, _ := strconv.Atoi(fmt.Sprintf("%d%d", year, termCode))
	return term
}

// CurrentTerm returns the term in session at the given time.
func CurrentTerm(now time.Time) int {
	return Term(now.Year(), TermCodeForMonth(now.Month()))
}

// NextTerm returns the term following the one in session. Fall rolls over
// into the next year's spring.
func NextTerm(now time.Time) int {
	year := now.Year()
	switch TermCodeForMonth(now.Month()) {
	case SpringTermCode:
		return Term(year, SummerTermCode)
	case SummerTermCode:
		return Term(year, FallTermCode)
	default:
		return Term(year+1, SpringTermCode)
	}
}

// DefaultTerms is the sync range when callers pass no explicit terms.
func DefaultTerms(now time.Time) []int {
	return []int{CurrentTerm(now), NextTerm(now)}
}
