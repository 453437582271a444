package common

import (
	"fmt"
	"regexp"
	"strings"
)

// SensitivePattern represents a pattern to detect and mask sensitive information
type SensitivePattern struct {
	Name        string         // Pattern name (e.g., "password")
	Regex       *regexp.Regexp // Regular expression to match sensitive data
	Replacement string         // Replacement string
	Keys        []string       // Specific keys to mask (case-insensitive)
}

const maskedValue = "***MASKED***"

// DefaultSensitivePatterns covers the credentials this tool actually handles:
// broker passwords in config/URLs and basic-auth headers to the management API.
var DefaultSensitivePatterns = []SensitivePattern{
	{
		Name:        "password",
		Regex:       regexp.MustCompile(`(?i)(password|passwd|pwd)["'\s]*[:=]["'\s]*([^"',}\]\s]+)`),
		Replacement: `${1}":"` + maskedValue + `"`,
		Keys:        []string{"password", "passwd", "pwd"},
	},
	{
		Name:        "amqp_url",
		Regex:       regexp.MustCompile(`(amqps?://[^:/@\s]+):([^@\s]+)@`),
		Replacement: `${1}:` + maskedValue + `@`,
		Keys:        []string{"amqp_url", "url"},
	},
	{
		Name:        "authorization",
		Regex:       regexp.MustCompile(`(?i)(authorization)["'\s]*[:=]["'\s]*([^"',}\]\s]+)`),
		Replacement: `${1}":"` + maskedValue + `"`,
		Keys:        []string{"authorization"},
	},
	{
		Name:        "basic_auth",
		Regex:       regexp.MustCompile(`(?i)Basic\s+[A-Za-z0-9+/]+=*`),
		Replacement: "Basic " + maskedValue,
		Keys:        []string{},
	},
}

// Masker handles masking of sensitive information in logs
type Masker struct {
	patterns []SensitivePattern
	enabled  bool
}

// Global masker shared by handlers unless one is set explicitly.
var defaultMasker = NewMasker()

// GetMasker returns the shared default masker.
func GetMasker() *Masker {
	return defaultMasker
}

// NewMasker creates a new masker with default patterns
func NewMasker() *Masker {
	return &Masker{
		patterns: DefaultSensitivePatterns,
		enabled:  true,
	}
}

// SetEnabled enables or disables masking
func (m *Masker) SetEnabled(enabled bool) {
	m.enabled = enabled
}

// IsEnabled reports whether masking is active
func (m *Masker) IsEnabled() bool {
	return m != nil && m.enabled
}

// MaskString masks sensitive content inside a free-form string.
func (m *Masker) MaskString(s string) string {
	if !m.IsEnabled() {
		return s
	}
	for _, p := range m.patterns {
		if p.Regex != nil {
			s = p.Regex.ReplaceAllString(s, p.Replacement)
		}
	}
	return s
}

// MaskValue masks a value when its key names a credential, otherwise it
// applies string masking to string values and leaves the rest untouched.
func (m *Masker) MaskValue(key string, value interface{}) interface{} {
	if !m.IsEnabled() {
		return value
	}
	lower := strings.ToLower(key)
	for _, p := range m.patterns {
		for _, k := range p.Keys {
			if lower == k {
				if p.Name == "amqp_url" {
					// URLs stay readable, only the password segment is hidden
					return m.MaskString(fmt.Sprintf("%v", value))
				}
				return maskedValue
			}
		}
	}
	if s, ok := value.(string); ok {
		return m.MaskString(s)
	}
	return value
}
