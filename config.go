package ballroom

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is what the binaries share. Defaults come from DefaultConfig, are
// overridden by BALLROOM_* environment variables (optionally loaded from a
// .env file) and finally by flags.
type Config struct {
	Name     string
	Room     string
	RelayURL string
	Codec    string
	Offline  bool
	Loopback bool

	Listen string
	TickHz int
	Bots   int

	LogLevel string
	LogColor bool

	PaintPNG  string
	PaintSize int

	DialTimeout time.Duration
	Tuning      Tuning
}

func DefaultConfig() Config {
	return Config{
		Room:        "lobby",
		RelayURL:    "ws://127.0.0.1:8080/ws",
		Codec:       "json",
		Listen:      ":8080",
		TickHz:      60,
		Bots:        1,
		LogLevel:    "info",
		PaintSize:   256,
		DialTimeout: 5 * time.Second,
		Tuning:      DefaultTuning(),
	}
}

// LoadConfig reads env files (".env" when none are given; missing files are
// fine) and parses args with a flag set named name.
func LoadConfig(name string, args []string, envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := DefaultConfig()
	fset := flag.NewFlagSet(name, flag.ContinueOnError)
	envs := map[string]flag.Value{}
	bind := func(v flag.Value, flagName, envKey, usage string) {
		fset.Var(v, flagName, usage+" ($"+envKey+")")
		envs[envKey] = v
	}

	bind((*stringValue)(&cfg.Name), "name", "BALLROOM_NAME", "display name")
	bind((*stringValue)(&cfg.Room), "room", "BALLROOM_ROOM", "room to join")
	bind((*stringValue)(&cfg.RelayURL), "relay", "BALLROOM_RELAY", "relay websocket url")
	bind((*stringValue)(&cfg.Codec), "codec", "BALLROOM_CODEC", "wire codec: json or msgpack")
	bind((*boolValue)(&cfg.Offline), "offline", "BALLROOM_OFFLINE", "skip connecting, single-player only")
	bind((*boolValue)(&cfg.Loopback), "loopback", "BALLROOM_LOOPBACK", "use an in-process room instead of the relay")
	bind((*stringValue)(&cfg.Listen), "listen", "BALLROOM_LISTEN", "relay listen address")
	bind((*intValue)(&cfg.TickHz), "hz", "BALLROOM_TICK_HZ", "simulation ticks per second")
	bind((*intValue)(&cfg.Bots), "bots", "BALLROOM_BOTS", "number of bots to run")
	bind((*stringValue)(&cfg.LogLevel), "log-level", "BALLROOM_LOG_LEVEL", "log level")
	bind((*boolValue)(&cfg.LogColor), "log-color", "BALLROOM_LOG_COLOR", "force coloured logs")
	bind((*stringValue)(&cfg.PaintPNG), "paint-png", "BALLROOM_PAINT_PNG", "write the floor canvas here on exit")
	bind((*intValue)(&cfg.PaintSize), "paint-size", "BALLROOM_PAINT_SIZE", "exported canvas size in pixels")
	bind((*durationValue)(&cfg.DialTimeout), "dial-timeout", "BALLROOM_DIAL_TIMEOUT", "relay connect timeout")
	bind((*durationValue)(&cfg.Tuning.StaleTimeout), "stale", "BALLROOM_STALE", "evict peers silent for this long")
	bind((*float32Value)(&cfg.Tuning.AgeCap), "age-cap", "BALLROOM_AGE_CAP", "max dead-reckoning age in seconds")
	bind((*float32Value)(&cfg.Tuning.PositionGain), "pos-gain", "BALLROOM_POS_GAIN", "position smoothing gain")
	bind((*float32Value)(&cfg.Tuning.OrientationGain), "rot-gain", "BALLROOM_ROT_GAIN", "orientation smoothing gain")
	bind((*float32Value)(&cfg.Tuning.StatePeriod), "state-period", "BALLROOM_STATE_PERIOD", "seconds between state broadcasts")
	bind((*float32Value)(&cfg.Tuning.PaintPeriod), "paint-period", "BALLROOM_PAINT_PERIOD", "seconds between paint broadcasts")
	bind((*float32Value)(&cfg.Tuning.HelloPeriod), "hello-period", "BALLROOM_HELLO_PERIOD", "seconds between hello heartbeats")
	bind((*float32Value)(&cfg.Tuning.Accel), "accel", "BALLROOM_ACCEL", "input acceleration")
	bind((*float32Value)(&cfg.Tuning.MaxSpeed), "max-speed", "BALLROOM_MAX_SPEED", "planar speed limit")
	bind((*float32Value)(&cfg.Tuning.Damping), "damping", "BALLROOM_DAMPING", "planar velocity damping")
	bind((*float32Value)(&cfg.Tuning.Gravity), "gravity", "BALLROOM_GRAVITY", "vertical acceleration")
	bind((*float32Value)(&cfg.Tuning.JumpSpeed), "jump-speed", "BALLROOM_JUMP_SPEED", "jump launch speed")
	bind((*float32Value)(&cfg.Tuning.MaxDt), "max-dt", "BALLROOM_MAX_DT", "longest integrated frame in seconds")
	bind((*float32Value)(&cfg.Tuning.WallBounce), "wall-bounce", "BALLROOM_WALL_BOUNCE", "wall restitution")
	bind((*float32Value)(&cfg.Tuning.FloorBounce), "floor-bounce", "BALLROOM_FLOOR_BOUNCE", "floor restitution")

	for key, v := range envs {
		if raw, ok := os.LookupEnv(key); ok {
			if err := v.Set(raw); err != nil {
				return Config{}, fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	if err := fset.Parse(args); err != nil {
		return Config{}, err
	}
	if _, err := CodecByName(cfg.Codec); err != nil {
		return Config{}, err
	}
	if cfg.TickHz <= 0 {
		return Config{}, fmt.Errorf("tick rate must be positive, got %d", cfg.TickHz)
	}
	return cfg, nil
}

type stringValue string

func (s *stringValue) Set(v string) error { *s = stringValue(v); return nil }
func (s *stringValue) String() string     { return string(*s) }

type boolValue bool

func (b *boolValue) Set(v string) error {
	p, err := strconv.ParseBool(v)
	*b = boolValue(p)
	return err
}
func (b *boolValue) String() string   { return strconv.FormatBool(bool(*b)) }
func (b *boolValue) IsBoolFlag() bool { return true }

type intValue int

func (i *intValue) Set(v string) error {
	p, err := strconv.Atoi(v)
	*i = intValue(p)
	return err
}
func (i *intValue) String() string { return strconv.Itoa(int(*i)) }

type float32Value float32

func (f *float32Value) Set(v string) error {
	p, err := strconv.ParseFloat(v, 32)
	*f = float32Value(p)
	return err
}
func (f *float32Value) String() string { return strconv.FormatFloat(float64(*f), 'g', -1, 32) }

type durationValue time.Duration

func (d *durationValue) Set(v string) error {
	p, err := time.ParseDuration(v)
	*d = durationValue(p)
	return err
}
func (d *durationValue) String() string { return time.Duration(*d).String() }
