package agenda

import (
	"net/url"
	"regexp"
	"strings"
)

var urlRegex = regexp.MustCompile(`https?://[^\s<>"]+`)

type meetingProvider struct {
	label   string
	matches func(host string) bool
}

var meetingProviders = []meetingProvider{
	{label: "Zoom", matches: func(host string) bool {
		return hostHasSuffix(host, "zoom.us") || hostHasSuffix(host, "zoomgov.com")
	}},
	{label: "Google Meet", matches: func(host string) bool {
		return hostHasSuffix(host, "meet.google.com")
	}},
	{label: "Microsoft Teams", matches: func(host string) bool {
		return hostHasSuffix(host, "teams.microsoft.com") || hostHasSuffix(host, "teams.live.com")
	}},
	{label: "Slack", matches: func(host string) bool {
		return hostHasSuffix(host, "slack.com")
	}},
}

// LocationLabel is the short label shown under an event title.
func (e CalendarEvent) LocationLabel() string {
	candidates := e.urls()
	for _, provider := range meetingProviders {
		for _, candidate := range candidates {
			if provider.matches(hostOf(candidate)) {
				return provider.label
			}
		}
	}

	for _, candidate := range candidates {
		if host := hostOf(candidate); host != "" {
			return strings.TrimPrefix(host, "www.")
		}
	}

	if location := sanitize(e.Location); location != "" {
		return location
	}
	return e.CalendarName
}

// JoinURL returns the first meeting link found on the event, if any.
func (e CalendarEvent) JoinURL() string {
	for _, candidate := range e.urls() {
		host := hostOf(candidate)
		for _, provider := range meetingProviders {
			if provider.matches(host) {
				return candidate
			}
		}
	}
	return ""
}

func (e CalendarEvent) urls() []string {
	results := make([]string, 0, 4)
	seen := make(map[string]struct{})
	add := func(values ...string) {
		for _, value := range values {
			normalized := normalizeURL(value)
			if normalized == "" {
				continue
			}
			if _, ok := seen[normalized]; ok {
				continue
			}
			seen[normalized] = struct{}{}
			results = append(results, normalized)
		}
	}

	add(e.URL)
	add(extractURLs(e.Location)...)
	add(extractURLs(e.Description)...)
	return results
}

func extractURLs(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	return urlRegex.FindAllString(trimmed, -1)
}

func normalizeURL(raw string) string {
	value := strings.TrimSpace(raw)
	value = strings.TrimRight(value, ".,;)")
	if value == "" {
		return ""
	}

	parsed, err := url.Parse(value)
	if err != nil {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return ""
	}
	return parsed.String()
}

func hostOf(value string) string {
	parsed, err := url.Parse(value)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

func hostHasSuffix(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func sanitize(value string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(value)), " ")
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}
