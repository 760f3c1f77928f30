// Package config parses the flat KEY VALUE configuration file of §6.4.
//
// The file format is intentionally bare: whitespace-separated KEY VALUE
// pairs, '#' comments, blank lines ignored. No ecosystem config library
// in the retrieved pack targets this literal grammar (koanf/viper/toml
// providers all expect a structured document), so this parser is a
// small hand-rolled scanner rather than a borrowed dependency — see
// DESIGN.md for the full justification.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// CreditDistMode selects how the Metrics Aggregator schedules automatic
// credit grants, §4.4.
type CreditDistMode int

// Credit distribution modes.
const (
	DistEven CreditDistMode = iota
	DistFlat
	DistDirect
)

// Config holds every recognized key from §6.4, defaulted per that table.
type Config struct {
	Iface              string
	NodeID             uint32
	MaxNeighbors       int
	Port               uint16
	CtlPort            uint16
	ServiceName        string
	DebugLevel         int
	CreditGrant        uint16
	CreditScalar       uint16
	HelloInterval      int // seconds
	SINRMin            float64
	SINRMax            float64
	VIFMode            int // 0=raw Ethernet, 1=TAP
	PlatformEndpoint   string
	TransportEndpoint  string
	PPPoEBinaryPath    string
	P2PMode            bool
	LCPEchoPongMode    bool
	CreditDistMode     CreditDistMode
	FlowControlEnabled bool
	CreditThreshold    float64
	SessionTimeout     int // seconds
}

// Default returns a Config populated with the §6.4 defaults, before a
// file is parsed over it.
func Default() Config {
	return Config{
		MaxNeighbors:    256,
		Port:            6001,
		ServiceName:     "rfc4938",
		CreditGrant:     256,
		CreditScalar:    64,
		P2PMode:         true,
		CreditDistMode:  DistDirect,
		CreditThreshold: 0.25,
	}
}

// Load reads and parses the config file at path, applied over Default().
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads KEY VALUE pairs from r and returns the resulting Config.
// NODE_ID is required; its absence is a configuration error (§7). The
// SINR range (SINR_MAX > SINR_MIN) is checked when either SINR key is given.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	haveNodeID := false
	haveSINR := false

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return Config{}, fmt.Errorf("config: line %d: key %q has no value", line, fields[0])
		}
		key, val := strings.ToUpper(fields[0]), fields[1]
		if err := apply(&cfg, key, val, &haveNodeID); err != nil {
			return Config{}, fmt.Errorf("config: line %d: %w", line, err)
		}
		if key == "SINR_MIN" || key == "SINR_MAX" {
			haveSINR = true
		}
	}
	if err := sc.Err(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if !haveNodeID {
		return Config{}, fmt.Errorf("config: %w", ErrMissingNodeID)
	}
	if cfg.NodeID == 0 {
		return Config{}, fmt.Errorf("config: %w", ErrInvalidNodeID)
	}
	if haveSINR && cfg.SINRMax <= cfg.SINRMin {
		return Config{}, fmt.Errorf("config: %w: SINR_MAX (%v) must exceed SINR_MIN (%v)", ErrInvalidSINRRange, cfg.SINRMax, cfg.SINRMin)
	}
	if cfg.CreditThreshold < 0 || cfg.CreditThreshold > 1 {
		return Config{}, fmt.Errorf("config: %w: CREDIT_THRESHOLD must be in [0,1], got %v", ErrInvalidThreshold, cfg.CreditThreshold)
	}
	return cfg, nil
}

func apply(cfg *Config, key, val string, haveNodeID *bool) error {
	switch key {
	case "IFACE":
		cfg.Iface = val
	case "NODE_ID":
		n, err := strconv.ParseUint(val, 10, 32)
		if err != nil {
			return fmt.Errorf("NODE_ID: %w", err)
		}
		cfg.NodeID = uint32(n)
		*haveNodeID = true
	case "MAX_NEIGHBORS":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("MAX_NEIGHBORS: %w", err)
		}
		cfg.MaxNeighbors = n
	case "PORT":
		n, err := strconv.ParseUint(val, 10, 16)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.Port = uint16(n)
	case "CTL_PORT":
		n, err := strconv.ParseUint(val, 10, 16)
		if err != nil {
			return fmt.Errorf("CTL_PORT: %w", err)
		}
		cfg.CtlPort = uint16(n)
	case "SERVICE_NAME":
		cfg.ServiceName = val
	case "DEBUG_LEVEL":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("DEBUG_LEVEL: %w", err)
		}
		cfg.DebugLevel = n
	case "CREDIT_GRANT":
		n, err := strconv.ParseUint(val, 10, 16)
		if err != nil {
			return fmt.Errorf("CREDIT_GRANT: %w", err)
		}
		cfg.CreditGrant = uint16(n)
	case "CREDIT_SCALAR":
		n, err := strconv.ParseUint(val, 10, 16)
		if err != nil {
			return fmt.Errorf("CREDIT_SCALAR: %w", err)
		}
		cfg.CreditScalar = uint16(n)
	case "HELLO_INTERVAL", "PROP_INTERVAL":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("HELLO_INTERVAL: %w", err)
		}
		cfg.HelloInterval = n
	case "SINR_MIN":
		n, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("SINR_MIN: %w", err)
		}
		cfg.SINRMin = n
	case "SINR_MAX":
		n, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("SINR_MAX: %w", err)
		}
		cfg.SINRMax = n
	case "VIF_MODE":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("VIF_MODE: %w", err)
		}
		cfg.VIFMode = n
	case "PLATFORM_ENDPOINT":
		cfg.PlatformEndpoint = val
	case "TRANSPORT_ENDPOINT":
		cfg.TransportEndpoint = val
	case "PPPOE_BINARY_PATH":
		cfg.PPPoEBinaryPath = val
	case "P2P_MODE":
		cfg.P2PMode = val == "1"
	case "LCP_ECHO_PONG_MODE":
		cfg.LCPEchoPongMode = val == "1"
	case "CREDIT_DIST_MODE":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("CREDIT_DIST_MODE: %w", err)
		}
		cfg.CreditDistMode = CreditDistMode(n)
	case "FLOW_CONTROL_ENABLED":
		cfg.FlowControlEnabled = val == "1"
	case "CREDIT_THRESHOLD":
		n, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("CREDIT_THRESHOLD: %w", err)
		}
		cfg.CreditThreshold = n
	case "SESSION_TIMEOUT":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("SESSION_TIMEOUT: %w", err)
		}
		cfg.SessionTimeout = n
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return nil
}
