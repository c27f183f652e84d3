package eds

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/godbus/dbus/v5"
	"gopkg.in/ini.v1"

	"github.com/rbright/weekview/internal/agenda"
)

// Kind selects which EDS extension a source must carry.
type Kind string

const (
	KindCalendar Kind = "Calendar"
	KindTaskList Kind = "Task List"
)

type sourceEntry struct {
	UID string

	DisplayName string
	ParentUID   string
	Enabled     bool

	Extensions map[Kind]extension
}

type extension struct {
	Enabled  bool
	Selected bool
	Backend  string
	Color    string
}

func (c *Client) ListCalendars(ctx context.Context) ([]agenda.Calendar, error) {
	return c.listSources(ctx, KindCalendar)
}

func (c *Client) ListTaskLists(ctx context.Context) ([]agenda.Calendar, error) {
	return c.listSources(ctx, KindTaskList)
}

func (c *Client) listSources(ctx context.Context, kind Kind) ([]agenda.Calendar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sourceObj := c.conn.Object(c.sourceService, dbus.ObjectPath("/org/gnome/evolution/dataserver/SourceManager"))

	managed := make(map[dbus.ObjectPath]map[string]map[string]dbus.Variant)
	if err := sourceObj.CallWithContext(ctx, "org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0).Store(&managed); err != nil {
		return nil, fmt.Errorf("eds GetManagedObjects: %w", err)
	}

	entries := make(map[string]sourceEntry)
	for _, ifaceMap := range managed {
		sourceProps, ok := ifaceMap["org.gnome.evolution.dataserver.Source"]
		if !ok {
			continue
		}

		uid := variantString(sourceProps, "UID")
		data := variantString(sourceProps, "Data")
		if strings.TrimSpace(uid) == "" || strings.TrimSpace(data) == "" {
			continue
		}

		entry, err := parseSourceEntry(uid, data)
		if err != nil {
			continue
		}
		entries[uid] = entry
	}

	return sourcesOfKind(entries, kind), nil
}

func sourcesOfKind(entries map[string]sourceEntry, kind Kind) []agenda.Calendar {
	sources := make([]agenda.Calendar, 0, len(entries))
	for _, entry := range entries {
		ext, ok := entry.Extensions[kind]
		if !ok {
			continue
		}

		sources = append(sources, agenda.Calendar{
			UID:         entry.UID,
			Name:        fallback(entry.DisplayName, entry.UID),
			ParentUID:   strings.TrimSpace(entry.ParentUID),
			Backend:     ext.Backend,
			Color:       ext.Color,
			Selected:    ext.Selected,
			Enabled:     entry.Enabled && ext.Enabled,
			AccountName: accountName(entry, entries),
		})
	}

	sort.SliceStable(sources, func(i, j int) bool {
		nameI := strings.ToLower(sources[i].Name)
		nameJ := strings.ToLower(sources[j].Name)
		if nameI != nameJ {
			return nameI < nameJ
		}
		return sources[i].UID < sources[j].UID
	})
	return sources
}

func parseSourceEntry(uid, data string) (sourceEntry, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment: true,
		AllowShadows:        true,
	}, []byte(data))
	if err != nil {
		return sourceEntry{}, err
	}

	entry := sourceEntry{UID: uid, Extensions: make(map[Kind]extension)}

	dataSection := cfg.Section("Data Source")
	entry.DisplayName = strings.TrimSpace(dataSection.Key("DisplayName").String())
	entry.ParentUID = strings.TrimSpace(dataSection.Key("Parent").String())
	entry.Enabled = parseBoolWithDefault(dataSection.Key("Enabled").String(), true)

	for _, kind := range []Kind{KindCalendar, KindTaskList} {
		section, err := cfg.GetSection(string(kind))
		if err != nil {
			continue
		}
		entry.Extensions[kind] = extension{
			Enabled:  parseBoolWithDefault(section.Key("Enabled").String(), true),
			Selected: parseBoolWithDefault(section.Key("Selected").String(), false),
			Backend:  strings.TrimSpace(section.Key("BackendName").String()),
			Color:    strings.TrimSpace(section.Key("Color").String()),
		}
	}

	return entry, nil
}

func variantString(props map[string]dbus.Variant, key string) string {
	value, ok := props[key]
	if !ok {
		return ""
	}
	asString, ok := value.Value().(string)
	if !ok {
		return ""
	}
	return asString
}

func parseBoolWithDefault(value string, fallback bool) bool {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return fallback
	}
	return parsed
}

// accountName is the parent source's display name, skipping the placeholder
// stubs EDS creates for local sources.
func accountName(entry sourceEntry, entries map[string]sourceEntry) string {
	parentUID := strings.TrimSpace(entry.ParentUID)
	if parentUID == "" || strings.HasSuffix(parentUID, "-stub") {
		return ""
	}

	parent, ok := entries[parentUID]
	if !ok {
		return ""
	}

	name := strings.TrimSpace(parent.DisplayName)
	if name == "" || strings.HasSuffix(strings.ToLower(name), "stub") {
		return ""
	}
	return name
}

func fallback(value, fallbackValue string) string {
	if strings.TrimSpace(value) == "" {
		return fallbackValue
	}
	return value
}
