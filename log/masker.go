/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

package log

import (
	"regexp"
	"strings"
)

// Mask is used to mask a secret in strings.
type Mask struct {
	RegExp *regexp.Regexp
	Mask   string
}

// NewMask constructs a Mask from its configuration. The regexp must be valid.
func NewMask(cfg MaskConfig) Mask {
	return Mask{regexp.MustCompile(cfg.RegExp), cfg.Mask}
}

// FieldMasker is used to mask a field in different formats.
type FieldMasker struct {
	Field string // Field is a name of a field used in RegExp, must be lowercase
	Masks []Mask
}

// NewFieldMasker constructs a FieldMasker from a masking rule.
func NewFieldMasker(cfg MaskingRuleConfig) FieldMasker {
	fMask := FieldMasker{Field: strings.ToLower(cfg.Field), Masks: make([]Mask, 0, len(cfg.Masks))}

	for _, maskCfg := range cfg.Masks {
		fMask.Masks = append(fMask.Masks, NewMask(maskCfg))
	}
	for _, format := range cfg.Formats {
		switch format {
		case FieldMaskFormatHTTPHeader:
			fMask.Masks = append(fMask.Masks, NewMask(MaskConfig{`(?i)` + cfg.Field + `: .+?\r\n`, cfg.Field + ": ***\r\n"}))
		case FieldMaskFormatJSON:
			fMask.Masks = append(fMask.Masks, NewMask(MaskConfig{`(?i)"` + cfg.Field + `"\s*:\s*".*?[^\\]"`, `"` + cfg.Field + `": "***"`}))
		case FieldMaskFormatURLEncoded:
			fMask.Masks = append(fMask.Masks, NewMask(MaskConfig{`(?i)` + cfg.Field + `\s*=\s*[^&\s]+`, cfg.Field + "=***"}))
		}
	}
	return fMask
}

// Masker is used to mask various secrets in strings.
type Masker struct {
	FieldMasks []FieldMasker
}

// NewMasker constructs a Masker from a list of masking rules.
func NewMasker(rules []MaskingRuleConfig) *Masker {
	m := &Masker{FieldMasks: make([]FieldMasker, 0, len(rules))}
	for _, rule := range rules {
		m.FieldMasks = append(m.FieldMasks, NewFieldMasker(rule))
	}
	return m
}

// Mask replaces secrets in s according to the masker's rules.
func (m *Masker) Mask(s string) string {
	lower := strings.ToLower(s)
	for _, fieldMask := range m.FieldMasks {
		if strings.Contains(lower, fieldMask.Field) {
			for _, mask := range fieldMask.Masks {
				s = mask.RegExp.ReplaceAllString(s, mask.Mask)
			}
		}
	}
	return s
}

// DefaultMasks covers the ways provider credentials typically leak into logs:
// static API keys passed via URL query (a failed request log line contains the
// full URL) and bearer tokens in dumped headers.
var DefaultMasks = []MaskingRuleConfig{
	{
		Field:   "Authorization",
		Formats: []FieldMaskFormat{FieldMaskFormatHTTPHeader},
	},
	{
		Field:   "api_key",
		Formats: []FieldMaskFormat{FieldMaskFormatJSON, FieldMaskFormatURLEncoded},
	},
	{
		Field:   "apikey",
		Formats: []FieldMaskFormat{FieldMaskFormatJSON, FieldMaskFormatURLEncoded},
	},
	{
		Field:   "key",
		Formats: []FieldMaskFormat{FieldMaskFormatURLEncoded},
	},
}
