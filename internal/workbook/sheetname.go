package workbook

import (
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/xuri/excelize/v2"
)

// DefaultSheetName replaces names that sanitize to nothing.
const DefaultSheetName = "Other"

const invalidSheetChars = `[]:*?/\`

// SanitizeSheetName strips the characters Excel rejects in sheet names,
// trims surrounding quotes and spaces, and truncates to the 31 UTF-16 unit
// limit.
func SanitizeSheetName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidSheetChars, r) || r < 0x20 {
			return -1
		}
		return r
	}, name)
	cleaned = strings.Trim(cleaned, "' ")
	cleaned = truncateUTF16(cleaned, excelize.MaxSheetNameLength)
	cleaned = strings.TrimRight(cleaned, "' ")
	if cleaned == "" {
		return DefaultSheetName
	}
	return cleaned
}

// uniqueSheetName appends ~2, ~3, ... until name is unused. Excel compares
// sheet names case-insensitively.
func uniqueSheetName(name string, used map[string]bool) string {
	candidate := name
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := "~" + strconv.Itoa(n)
		candidate = truncateUTF16(name, excelize.MaxSheetNameLength-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncateUTF16(s string, max int) string {
	units := 0
	for i, r := range s {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if units+n > max {
			return s[:i]
		}
		units += n
	}
	return s
}
