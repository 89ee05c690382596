package orgmode

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/harrisonrobin/taskmerge/pkg/model"
	"github.com/pkg/errors"
)

// Entry is a TODO or DONE headline.
type Entry struct {
	model.Draft
	Tags   []string
	Source string
}

var (
	headlineRegex = regexp.MustCompile(`^\*+\s+(TODO|DONE)\s+(?:\[#([A-Za-z])\]\s*)?(.*?)(?:\s+:([\w@#%:]+):)?\s*$`)

	cookiePriorities = map[string]model.Priority{
		"A": model.PriorityHigh,
		"B": model.PriorityMedium,
		"C": model.PriorityLow,
	}
)

func parseFile(filePath string) ([]Entry, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer file.Close()
	return Parse(file, filePath)
}

// ParseFiles parses multiple Org-mode files, in order.
func ParseFiles(filePaths []string) ([]Entry, error) {
	var all []Entry
	for _, filePath := range filePaths {
		entries, err := parseFile(filePath)
		if err != nil {
			return nil, errors.Wrapf(err, "could not parse '%s'", filePath)
		}
		all = append(all, entries...)
	}
	return all, nil
}

// Parse reads TODO and DONE headlines of any level. Priority cookies map
// [#A] to high, [#B] to medium and [#C] to low; headlines without a cookie
// are medium.
func Parse(r io.Reader, source string) ([]Entry, error) {
	slog.Debug("parsing org file", slog.String("source", source))

	scanner := bufio.NewScanner(r)
	var entries []Entry
	for scanner.Scan() {
		matches := headlineRegex.FindStringSubmatch(strings.TrimRight(scanner.Text(), " \t"))
		if matches == nil {
			continue
		}

		text := strings.TrimSpace(matches[3])
		if text == "" {
			continue
		}

		priority, ok := cookiePriorities[strings.ToUpper(matches[2])]
		if !ok {
			priority = model.PriorityMedium
		}

		entry := Entry{
			Draft: model.Draft{
				Text:      text,
				Completed: matches[1] == "DONE",
				Priority:  priority,
			},
			Source: source,
		}
		if matches[4] != "" {
			entry.Tags = strings.Split(matches[4], ":")
		}
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	return entries, nil
}

// FilterByTag keeps the entries carrying tag.
func FilterByTag(entries []Entry, tag string) []Entry {
	var filtered []Entry
	for _, entry := range entries {
		for _, t := range entry.Tags {
			if t == tag {
				filtered = append(filtered, entry)
				break
			}
		}
	}
	return filtered
}

// Drafts strips the org-specific fields.
func Drafts(entries []Entry) []model.Draft {
	drafts := make([]model.Draft, 0, len(entries))
	for _, entry := range entries {
		drafts = append(drafts, entry.Draft)
	}
	return drafts
}
