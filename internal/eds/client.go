package eds

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	sourceServicePrefix   = "org.gnome.evolution.dataserver.Sources"
	calendarServicePrefix = "org.gnome.evolution.dataserver.Calendar"

	calendarFactoryPath  = "/org/gnome/evolution/dataserver/CalendarFactory"
	calendarFactoryIface = "org.gnome.evolution.dataserver.CalendarFactory"
	calendarIface        = "org.gnome.evolution.dataserver.Calendar"
)

// ErrServiceUnavailable means the session bus or the Evolution Data Server
// services could not be reached.
var ErrServiceUnavailable = errors.New("evolution data server unavailable")

type Client struct {
	conn            *dbus.Conn
	sourceService   string
	calendarService string

	mu       sync.Mutex
	backends map[string]dbus.BusObject
}

func New(ctx context.Context) (*Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w: %w", ErrServiceUnavailable, err)
	}

	sourceService, err := findServiceName(conn, sourceServicePrefix)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	calendarService, err := findServiceName(conn, calendarServicePrefix)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &Client{
		conn:            conn,
		sourceService:   sourceService,
		calendarService: calendarService,
		backends:        make(map[string]dbus.BusObject),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	c.mu.Lock()
	for key, backend := range c.backends {
		_ = backend.Call(calendarIface+".Close", 0)
		delete(c.backends, key)
	}
	c.mu.Unlock()

	return c.conn.Close()
}

// backend opens (once) the calendar or task list backend for a source.
func (c *Client) backend(ctx context.Context, kind Kind, sourceUID string) (dbus.BusObject, error) {
	key := string(kind) + "|" + strings.TrimSpace(sourceUID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if backend, ok := c.backends[key]; ok {
		return backend, nil
	}

	factory := c.conn.Object(c.calendarService, dbus.ObjectPath(calendarFactoryPath))
	objectPath, busName, err := openBackend(ctx, factory, kind, sourceUID)
	if err != nil {
		return nil, err
	}

	backend := c.conn.Object(busName, dbus.ObjectPath(objectPath))
	var properties []string
	if err := backend.CallWithContext(ctx, calendarIface+".Open", 0).Store(&properties); err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}

	c.backends[key] = backend
	return backend, nil
}

func openBackend(ctx context.Context, factory dbus.BusObject, kind Kind, sourceUID string) (objectPath string, busName string, err error) {
	method := "OpenCalendar"
	if kind == KindTaskList {
		method = "OpenTaskList"
	}

	if callErr := factory.CallWithContext(ctx, calendarFactoryIface+"."+method, 0, strings.TrimSpace(sourceUID)).Store(&objectPath, &busName); callErr != nil {
		return "", "", fmt.Errorf("%s: %w", method, callErr)
	}
	if strings.TrimSpace(objectPath) == "" {
		return "", "", fmt.Errorf("%s returned empty object path", method)
	}
	if strings.TrimSpace(busName) == "" {
		return "", "", fmt.Errorf("%s returned empty bus name", method)
	}
	return objectPath, busName, nil
}

func findServiceName(conn *dbus.Conn, prefix string) (string, error) {
	dbusObj := conn.Object("org.freedesktop.DBus", "/org/freedesktop/DBus")

	var names []string
	if err := dbusObj.Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err == nil {
		if best := bestMatchingService(names, prefix); best != "" {
			return best, nil
		}
	}

	var activatable []string
	if err := dbusObj.Call("org.freedesktop.DBus.ListActivatableNames", 0).Store(&activatable); err == nil {
		if best := bestMatchingService(activatable, prefix); best != "" {
			return best, nil
		}
	}

	return "", fmt.Errorf("dbus service with prefix %q not found: %w", prefix, ErrServiceUnavailable)
}

func bestMatchingService(names []string, prefix string) string {
	matches := make([]string, 0, len(names))
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			matches = append(matches, name)
		}
	}
	if len(matches) == 0 {
		return ""
	}

	sort.SliceStable(matches, func(i, j int) bool {
		versionI := serviceVersion(matches[i], prefix)
		versionJ := serviceVersion(matches[j], prefix)
		if versionI != versionJ {
			return versionI > versionJ
		}
		return matches[i] < matches[j]
	})

	return matches[0]
}

func serviceVersion(name, prefix string) int {
	versionPart := strings.TrimSpace(strings.TrimPrefix(name, prefix))
	if versionPart == "" {
		return 0
	}
	version, err := strconv.Atoi(versionPart)
	if err != nil {
		return 0
	}
	return version
}
