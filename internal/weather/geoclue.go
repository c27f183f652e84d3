package weather

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	geoclueService = "org.freedesktop.GeoClue2"
	geoclueManager = "/org/freedesktop/GeoClue2/Manager"
	geoclueClient  = "org.freedesktop.GeoClue2.Client"
	geoclueLoc     = "org.freedesktop.GeoClue2.Location"

	// GeoClue accuracy level for city-sized fixes.
	accuracyCity = uint32(4)
)

// GeoClue resolves the device location through the GeoClue2 system service.
// Each call takes the first LocationUpdated signal and stops the client.
type GeoClue struct {
	DesktopID string
}

func (g GeoClue) Locate(ctx context.Context) (Coordinates, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return Coordinates{}, fmt.Errorf("connect system bus: %w: %w", ErrLocationUnavailable, err)
	}
	defer func() {
		_ = conn.Close()
	}()

	manager := conn.Object(geoclueService, geoclueManager)
	var clientPath dbus.ObjectPath
	if err := manager.CallWithContext(ctx, geoclueService+".Manager.GetClient", 0).Store(&clientPath); err != nil {
		return Coordinates{}, fmt.Errorf("geoclue GetClient: %w: %w", ErrLocationUnavailable, err)
	}

	client := conn.Object(geoclueService, clientPath)
	desktopID := g.DesktopID
	if desktopID == "" {
		desktopID = "weekview"
	}
	if err := setProperty(ctx, client, "DesktopId", desktopID); err != nil {
		return Coordinates{}, err
	}
	if err := setProperty(ctx, client, "RequestedAccuracyLevel", accuracyCity); err != nil {
		return Coordinates{}, err
	}

	matchOptions := []dbus.MatchOption{
		dbus.WithMatchObjectPath(clientPath),
		dbus.WithMatchInterface(geoclueClient),
		dbus.WithMatchMember("LocationUpdated"),
	}
	if err := conn.AddMatchSignal(matchOptions...); err != nil {
		return Coordinates{}, fmt.Errorf("geoclue subscribe: %w", err)
	}
	defer func() {
		_ = conn.RemoveMatchSignal(matchOptions...)
	}()

	signals := make(chan *dbus.Signal, 4)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	if err := client.CallWithContext(ctx, geoclueClient+".Start", 0).Err; err != nil {
		return Coordinates{}, fmt.Errorf("geoclue Start: %w: %w", ErrLocationUnavailable, err)
	}
	defer func() {
		_ = client.Call(geoclueClient+".Stop", 0).Err
	}()

	for {
		select {
		case <-ctx.Done():
			return Coordinates{}, fmt.Errorf("waiting for location: %w: %w", ErrLocationUnavailable, ctx.Err())
		case signal, ok := <-signals:
			if !ok {
				return Coordinates{}, ErrLocationUnavailable
			}
			locationPath, ok := newLocationPath(signal)
			if !ok {
				continue
			}
			return readLocation(conn.Object(geoclueService, locationPath))
		}
	}
}

func newLocationPath(signal *dbus.Signal) (dbus.ObjectPath, bool) {
	if signal == nil || signal.Name != geoclueClient+".LocationUpdated" || len(signal.Body) < 2 {
		return "", false
	}
	path, ok := signal.Body[1].(dbus.ObjectPath)
	if !ok || !path.IsValid() || path == "/" {
		return "", false
	}
	return path, true
}

func readLocation(location dbus.BusObject) (Coordinates, error) {
	latitude, err := floatProperty(location, geoclueLoc+".Latitude")
	if err != nil {
		return Coordinates{}, err
	}
	longitude, err := floatProperty(location, geoclueLoc+".Longitude")
	if err != nil {
		return Coordinates{}, err
	}
	return Coordinates{Latitude: latitude, Longitude: longitude}, nil
}

func floatProperty(object dbus.BusObject, name string) (float64, error) {
	variant, err := object.GetProperty(name)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", name, err)
	}
	value, ok := variant.Value().(float64)
	if !ok {
		return 0, fmt.Errorf("read %s: unexpected type %s", name, variant.Signature())
	}
	return value, nil
}

func setProperty(ctx context.Context, object dbus.BusObject, name string, value any) error {
	call := object.CallWithContext(ctx, "org.freedesktop.DBus.Properties.Set", 0, geoclueClient, name, dbus.MakeVariant(value))
	if call.Err != nil {
		return fmt.Errorf("geoclue set %s: %w: %w", name, ErrLocationUnavailable, call.Err)
	}
	return nil
}
