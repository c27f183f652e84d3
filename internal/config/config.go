package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const (
	maxActionItems         = 12
	defaultWeatherURL      = "https://api.open-meteo.com/v1/forecast"
	defaultRefreshSchedule = "@every 15m"
)

type Runtime struct {
	ConfigFile string

	WeeksBefore       int
	WeeksAfter        int
	EdgeThresholdDays int
	ExtendCooldown    time.Duration
	MaxWeeks          int

	Timeout         time.Duration
	RefreshSchedule string
	MaxItems        int

	Latitude    float64
	Longitude   float64
	HasLocation bool
	WeatherURL  string

	EventOpenCommand    string
	ReminderOpenCommand string

	StateDir  string
	PrefsDir  string
	MenuDir   string
	MenuPath  string
	ItemsPath string

	LogLevel string
	LogFile  string
}

func Load() (Runtime, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Runtime{}, fmt.Errorf("resolve home dir: %w", err)
	}

	xdgConfig := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}

	xdgState := strings.TrimSpace(os.Getenv("XDG_STATE_HOME"))
	if xdgState == "" {
		xdgState = filepath.Join(home, ".local", "state")
	}

	defaultConfig := filepath.Join(xdgConfig, "weekview", "weekview.env")
	configFile := strings.TrimSpace(os.Getenv("WEEKVIEW_CONFIG_FILE"))
	if configFile == "" {
		configFile = defaultConfig
	}

	if err := loadEnvFile(configFile); err != nil {
		return Runtime{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("WEEKVIEW")
	v.AutomaticEnv()

	_ = v.BindEnv("weeks_before", "WEEKVIEW_WEEKS_BEFORE", "WEEKS_BEFORE")
	_ = v.BindEnv("weeks_after", "WEEKVIEW_WEEKS_AFTER", "WEEKS_AFTER")
	_ = v.BindEnv("edge_threshold_days", "WEEKVIEW_EDGE_THRESHOLD_DAYS", "EDGE_THRESHOLD_DAYS")
	_ = v.BindEnv("extend_cooldown_ms", "WEEKVIEW_EXTEND_COOLDOWN_MS", "EXTEND_COOLDOWN_MS")
	_ = v.BindEnv("max_weeks", "WEEKVIEW_MAX_WEEKS", "MAX_WEEKS")
	_ = v.BindEnv("timeout_seconds", "WEEKVIEW_TIMEOUT_SECONDS", "TIMEOUT_SECONDS")
	_ = v.BindEnv("refresh_schedule", "WEEKVIEW_REFRESH_SCHEDULE", "REFRESH_SCHEDULE")
	_ = v.BindEnv("max_items", "WEEKVIEW_MAX_ITEMS", "MAX_ITEMS")
	_ = v.BindEnv("latitude", "WEEKVIEW_LATITUDE", "LATITUDE")
	_ = v.BindEnv("longitude", "WEEKVIEW_LONGITUDE", "LONGITUDE")
	_ = v.BindEnv("weather_url", "WEEKVIEW_WEATHER_URL", "WEATHER_URL")
	_ = v.BindEnv("event_open_command", "WEEKVIEW_EVENT_OPEN_COMMAND", "EVENT_OPEN_COMMAND")
	_ = v.BindEnv("reminder_open_command", "WEEKVIEW_REMINDER_OPEN_COMMAND", "REMINDER_OPEN_COMMAND")
	_ = v.BindEnv("state_dir", "WEEKVIEW_STATE_DIR")
	_ = v.BindEnv("prefs_dir", "WEEKVIEW_PREFS_DIR")
	_ = v.BindEnv("menu_dir", "WEEKVIEW_MENU_DIR")
	_ = v.BindEnv("log_level", "WEEKVIEW_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("log_file", "WEEKVIEW_LOG_FILE")

	stateDefault := filepath.Join(xdgState, "weekview")
	prefsDefault := filepath.Join(xdgConfig, "weekview", "prefs")
	menuDefault := filepath.Join(xdgState, "waybar", "menus")

	v.SetDefault("weeks_before", 1)
	v.SetDefault("weeks_after", 2)
	v.SetDefault("edge_threshold_days", 3)
	v.SetDefault("extend_cooldown_ms", 300)
	v.SetDefault("max_weeks", 26)
	v.SetDefault("timeout_seconds", 20)
	v.SetDefault("refresh_schedule", defaultRefreshSchedule)
	v.SetDefault("max_items", 8)
	v.SetDefault("weather_url", defaultWeatherURL)
	v.SetDefault("event_open_command", "gnome-calendar --date {date}")
	v.SetDefault("reminder_open_command", "gnome-todo")
	v.SetDefault("state_dir", stateDefault)
	v.SetDefault("prefs_dir", prefsDefault)
	v.SetDefault("menu_dir", menuDefault)
	v.SetDefault("log_level", "info")

	weeksBefore := clamp(v.GetInt("weeks_before"), 0, 8)
	weeksAfter := clamp(v.GetInt("weeks_after"), 0, 8)

	edgeThreshold := v.GetInt("edge_threshold_days")
	if edgeThreshold <= 0 {
		edgeThreshold = 3
	}

	cooldownMS := v.GetInt("extend_cooldown_ms")
	if cooldownMS < 0 {
		cooldownMS = 0
	}

	maxWeeks := v.GetInt("max_weeks")
	if maxWeeks < weeksBefore+weeksAfter+1 {
		maxWeeks = weeksBefore + weeksAfter + 1
	}

	timeoutSeconds := v.GetInt("timeout_seconds")
	if timeoutSeconds <= 0 {
		timeoutSeconds = 20
	}

	refreshSchedule := strings.TrimSpace(v.GetString("refresh_schedule"))
	if refreshSchedule == "" {
		refreshSchedule = defaultRefreshSchedule
	}
	if _, err := cron.ParseStandard(refreshSchedule); err != nil {
		return Runtime{}, fmt.Errorf("invalid REFRESH_SCHEDULE %q: %w", refreshSchedule, err)
	}

	maxItems := clamp(v.GetInt("max_items"), 1, maxActionItems)

	latitude := v.GetFloat64("latitude")
	longitude := v.GetFloat64("longitude")
	hasLocation := strings.TrimSpace(v.GetString("latitude")) != "" && strings.TrimSpace(v.GetString("longitude")) != ""
	if hasLocation && (latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180) {
		return Runtime{}, fmt.Errorf("coordinates out of range: %v,%v", latitude, longitude)
	}

	weatherURL := strings.TrimSpace(v.GetString("weather_url"))
	if weatherURL == "" {
		weatherURL = defaultWeatherURL
	}

	stateDir := strings.TrimSpace(v.GetString("state_dir"))
	if stateDir == "" {
		stateDir = stateDefault
	}

	prefsDir := strings.TrimSpace(v.GetString("prefs_dir"))
	if prefsDir == "" {
		prefsDir = prefsDefault
	}

	menuDir := strings.TrimSpace(v.GetString("menu_dir"))
	if menuDir == "" {
		menuDir = menuDefault
	}

	logFile := strings.TrimSpace(v.GetString("log_file"))
	if logFile == "" {
		logFile = filepath.Join(stateDir, "weekview.log")
	}

	return Runtime{
		ConfigFile:          configFile,
		WeeksBefore:         weeksBefore,
		WeeksAfter:          weeksAfter,
		EdgeThresholdDays:   edgeThreshold,
		ExtendCooldown:      time.Duration(cooldownMS) * time.Millisecond,
		MaxWeeks:            maxWeeks,
		Timeout:             time.Duration(timeoutSeconds) * time.Second,
		RefreshSchedule:     refreshSchedule,
		MaxItems:            maxItems,
		Latitude:            latitude,
		Longitude:           longitude,
		HasLocation:         hasLocation,
		WeatherURL:          weatherURL,
		EventOpenCommand:    strings.TrimSpace(v.GetString("event_open_command")),
		ReminderOpenCommand: strings.TrimSpace(v.GetString("reminder_open_command")),
		StateDir:            stateDir,
		PrefsDir:            prefsDir,
		MenuDir:             menuDir,
		MenuPath:            filepath.Join(menuDir, "weekview.xml"),
		ItemsPath:           filepath.Join(stateDir, "items.json"),
		LogLevel:            strings.TrimSpace(v.GetString("log_level")),
		LogFile:             logFile,
	}, nil
}

func clamp(value, lower, upper int) int {
	if value < lower {
		return lower
	}
	if value > upper {
		return upper
	}
	return value
}

func loadEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open env file %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}

		if len(value) >= 2 {
			if (value[0] == '\'' && value[len(value)-1] == '\'') ||
				(value[0] == '"' && value[len(value)-1] == '"') {
				value = value[1 : len(value)-1]
			}
		}

		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, value)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan env file %s: %w", path, err)
	}
	return nil
}
