// Package inventory loads the ordered device list netsync works through.
//
// Records use netmiko-style keys (device_type, ip or host, port, username,
// password, secret) so existing device files can be reused unchanged.
package inventory

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// DefaultDeviceType is assumed for records without a device_type.
const DefaultDeviceType = "cisco_ios"

var errNoDevices = errors.New("inventory contains no devices")

// Device holds the connection parameters of one device. It is read-only
// once loaded.
type Device struct {
	DeviceType string `yaml:"device_type" json:"device_type"`
	IP         string `yaml:"ip" json:"ip"`
	Host       string `yaml:"host" json:"host"`
	Port       int    `yaml:"port" json:"port"`
	Username   string `yaml:"username" json:"username"`
	Password   string `yaml:"password" json:"password"`
	Secret     string `yaml:"secret" json:"secret"`

	// Platform is derived from DeviceType at load time.
	Platform Platform `yaml:"-" json:"-"`
}

// Address returns the IP, or the host name when no IP is given.
func (d Device) Address() string {
	if d.IP != "" {
		return d.IP
	}

	return d.Host
}

// Load reads path and returns its devices in file order. The format follows
// the extension: .yaml/.yml, .json/.jsonc, .csv or .xlsx.
func Load(path string) ([]Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open inventory: %w", err)
	}
	defer f.Close()

	var devices []Device

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		devices, err = parseYAML(f)
	case ".json", ".jsonc":
		devices, err = parseJSON(f)
	case ".csv":
		devices, err = parseCSV(f)
	case ".xlsx":
		devices, err = parseXLSX(f)
	default:
		return nil, fmt.Errorf("inventory %s: unsupported format %q", path, ext)
	}

	if err != nil {
		return nil, fmt.Errorf("inventory %s: %w", path, err)
	}

	if err := normalize(devices); err != nil {
		return nil, fmt.Errorf("inventory %s: %w", path, err)
	}

	return devices, nil
}

func parseYAML(r io.Reader) ([]Device, error) {
	var devices []Device

	if err := yaml.NewDecoder(r).Decode(&devices); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errNoDevices
		}

		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	return devices, nil
}

func parseJSON(r io.Reader) ([]Device, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var devices []Device
	if err := json.Unmarshal(jsonc.ToJSON(data), &devices); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	return devices, nil
}

func parseCSV(r io.Reader) ([]Device, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.Comment = '#'

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	return fromTable(records)
}

// fromTable maps a header row plus data rows to devices. Columns are found
// by header name, so their order is free. "ip", "ip_address" and "host" are
// all accepted for the address.
func fromTable(records [][]string) ([]Device, error) {
	if len(records) == 0 {
		return nil, errNoDevices
	}

	columns := make(map[string]int)
	for i, name := range records[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	if _, ok := firstColumn(columns, "ip", "ip_address", "host"); !ok {
		return nil, errors.New("header needs an ip, ip_address or host column")
	}

	var devices []Device

	for n, record := range records[1:] {
		field := func(names ...string) string {
			i, ok := firstColumn(columns, names...)
			if !ok || i >= len(record) {
				return ""
			}

			return strings.TrimSpace(record[i])
		}

		d := Device{
			DeviceType: field("device_type", "type"),
			IP:         field("ip", "ip_address"),
			Host:       field("host"),
			Username:   field("username"),
			Password:   field("password"),
			Secret:     field("secret"),
		}

		if port := field("port"); port != "" {
			p, err := strconv.Atoi(port)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid port %q", n+2, port)
			}
			d.Port = p
		}

		if d.Address() == "" && d.Username == "" {
			continue
		}

		devices = append(devices, d)
	}

	return devices, nil
}

func firstColumn(columns map[string]int, names ...string) (int, bool) {
	for _, name := range names {
		if i, ok := columns[name]; ok {
			return i, true
		}
	}

	return 0, false
}

func normalize(devices []Device) error {
	if len(devices) == 0 {
		return errNoDevices
	}

	for i := range devices {
		d := &devices[i]

		if d.Address() == "" {
			return fmt.Errorf("device %d: ip or host is required", i+1)
		}

		if d.Username == "" {
			return fmt.Errorf("device %d (%s): username is required", i+1, d.Address())
		}

		if d.Port < 0 || d.Port > 65535 {
			return fmt.Errorf("device %d (%s): port out of range: %d", i+1, d.Address(), d.Port)
		}

		if d.DeviceType == "" {
			d.DeviceType = DefaultDeviceType
		}

		d.Platform = DetectPlatform(d.DeviceType)
	}

	return nil
}

// MissingPasswords returns the indexes of devices without a password.
func MissingPasswords(devices []Device) []int {
	var idx []int

	for i, d := range devices {
		if d.Password == "" {
			idx = append(idx, i)
		}
	}

	return idx
}
