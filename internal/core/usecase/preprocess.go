package usecase

import (
	"strings"
	"unicode"

	"github.com/unimind/uniquery/internal/core/domain"
)

// PreprocessedQuery is the outcome of the in-band parsing pass: the cleaned
// query text, the resolved per-request options, and any session command that
// must short-circuit normal processing.
type PreprocessedQuery struct {
	Query   string
	Options domain.SearchOptions
	Command domain.SessionCommand
}

// PreprocessQuery strips leading in-band source flags (-db, -d, -a, -i) and a
// leading session command (/new, /reset, /clear) from the raw query string.
// Flags select exactly the named source types and disable the rest. Options
// passed by the caller are authoritative; in-band flags only apply on top of
// defaults. Parsing never mixes with routing: routing sees only the result.
func PreprocessQuery(raw string, callerOpts *domain.SearchOptions) PreprocessedQuery {
	rest := strings.TrimSpace(raw)

	var flagged []domain.SourceType
	for {
		token, remainder := cutToken(rest)
		source, ok := sourceForFlag(token)
		if !ok {
			break
		}
		flagged = append(flagged, source)
		rest = remainder
	}

	command := domain.SessionCommandNone
	if token, remainder := cutToken(rest); token != "" {
		switch strings.ToLower(token) {
		case "/new":
			command = domain.SessionCommandNew
			rest = remainder
		case "/reset":
			command = domain.SessionCommandReset
			rest = remainder
		case "/clear":
			command = domain.SessionCommandClear
			rest = remainder
		}
	}

	return PreprocessedQuery{
		Query:   rest,
		Options: resolveOptions(callerOpts, flagged),
		Command: command,
	}
}

// cutToken splits off the first whitespace-delimited token, keeping the
// remainder's internal spacing intact.
func cutToken(s string) (token, rest string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	if s == "" {
		return "", ""
	}
	idx := strings.IndexFunc(s, unicode.IsSpace)
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimLeftFunc(s[idx:], unicode.IsSpace)
}

func sourceForFlag(token string) (domain.SourceType, bool) {
	switch token {
	case "-db":
		return domain.SourceDatabase, true
	case "-d":
		return domain.SourceDocument, true
	case "-a":
		return domain.SourceAudio, true
	case "-i":
		return domain.SourceImage, true
	default:
		return "", false
	}
}

func resolveOptions(callerOpts *domain.SearchOptions, flagged []domain.SourceType) domain.SearchOptions {
	if callerOpts != nil {
		return *callerOpts
	}

	opts := domain.DefaultSearchOptions()
	if len(flagged) == 0 {
		return opts
	}

	opts.EnableDatabaseSearch = false
	opts.EnableDocumentSearch = false
	opts.EnableAudioSearch = false
	opts.EnableImageSearch = false
	for _, source := range flagged {
		switch source {
		case domain.SourceDatabase:
			opts.EnableDatabaseSearch = true
		case domain.SourceDocument:
			opts.EnableDocumentSearch = true
		case domain.SourceAudio:
			opts.EnableAudioSearch = true
		case domain.SourceImage:
			opts.EnableImageSearch = true
		}
	}
	return opts
}
