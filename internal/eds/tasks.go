package eds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/rbright/weekview/internal/agenda"
)

// SetTaskCompleted marks one task in a task list as completed or not and
// returns the task as stored afterwards.
func (c *Client) SetTaskCompleted(ctx context.Context, list agenda.Calendar, taskUID string, completed bool) (agenda.ReminderItem, error) {
	taskUID = strings.TrimSpace(taskUID)
	if taskUID == "" {
		return agenda.ReminderItem{}, fmt.Errorf("task uid is empty")
	}

	backend, err := c.backend(ctx, KindTaskList, list.UID)
	if err != nil {
		return agenda.ReminderItem{}, err
	}

	var payload string
	if err := backend.CallWithContext(ctx, calendarIface+".GetObject", 0, taskUID, "").Store(&payload); err != nil {
		return agenda.ReminderItem{}, fmt.Errorf("get task %s: %w", taskUID, err)
	}

	modified, todo, err := setTodoCompleted(payload, completed, time.Now())
	if err != nil {
		return agenda.ReminderItem{}, fmt.Errorf("update task %s: %w", taskUID, err)
	}

	if err := modifyObjects(ctx, backend, []string{modified}); err != nil {
		return agenda.ReminderItem{}, fmt.Errorf("save task %s: %w", taskUID, err)
	}

	return mapTodo(list, todo), nil
}

// modifyObjects prefers the current three-argument signature and falls back
// to the older one without operation flags.
func modifyObjects(ctx context.Context, backend dbus.BusObject, objects []string) error {
	err := backend.CallWithContext(ctx, calendarIface+".ModifyObjects", 0, objects, "all", uint32(0)).Err
	if err == nil {
		return nil
	}

	var dbusErr dbus.Error
	if asDBusError(err, &dbusErr) && dbusErr.Name == "org.freedesktop.DBus.Error.InvalidArgs" {
		return backend.CallWithContext(ctx, calendarIface+".ModifyObjects", 0, objects, "all").Err
	}
	return err
}

func asDBusError(err error, target *dbus.Error) bool {
	switch typed := err.(type) {
	case dbus.Error:
		*target = typed
		return true
	case *dbus.Error:
		*target = *typed
		return true
	default:
		return false
	}
}
