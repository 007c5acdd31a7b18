// Package config holds the serialboot tool configuration, read from YAML.
//
// Example file:
//
//	link:
//	  device: /dev/ttyUSB0
//	  baud: 115200
//	  byte_order: big
//	device:
//	  flash_size: 0x10000
//	  page_size: 0x400
//	  app_start: 0x2000
//	  image: flash.bin
//	host:
//	  chunk_size: 128
//	  run: true
package config

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/moffa90/go-serialboot/protocol"
)

// Config is the complete tool configuration.
type Config struct {
	Link   Link   `yaml:"link"`
	Device Device `yaml:"device"`
	Host   Host   `yaml:"host"`
}

// Link describes the connection between host and device. Exactly one of
// Device and Address is used; Device wins when both are set.
type Link struct {
	// Device is a serial port path
	Device string `yaml:"device"`

	// Address is a TCP address, host:port
	Address string `yaml:"address"`

	// Baud is the serial speed
	Baud int `yaml:"baud"`

	// Autobaud makes the device wait for, and the host send, the sync pattern
	Autobaud bool `yaml:"autobaud"`

	// ByteOrder of wire words: "big" or "little"
	ByteOrder string `yaml:"byte_order"`
}

// Device configures the simulated boot loader.
type Device struct {
	FlashSize       uint32 `yaml:"flash_size"`
	PageSize        uint32 `yaml:"page_size"`
	AppStart        uint32 `yaml:"app_start"`
	Reserved        uint32 `yaml:"reserved"`
	AllowBootUpdate bool   `yaml:"allow_boot_update"`
	CodeProtection  bool   `yaml:"code_protection"`
	BufferSize      int    `yaml:"buffer_size"`

	// Image is the file the flash contents persist in (optional)
	Image string `yaml:"image"`
}

// Host configures the uploader.
type Host struct {
	ChunkSize       int  `yaml:"chunk_size"`
	Retries         int  `yaml:"retries"`
	VerifyEachChunk bool `yaml:"verify_each_chunk"`
	Run             bool `yaml:"run"`

	// RunAddress overrides the image address as the application entry
	RunAddress *uint32 `yaml:"run_address"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Link: Link{
			Baud:      115200,
			ByteOrder: "big",
		},
		Device: Device{
			FlashSize:  64 * 1024,
			PageSize:   1024,
			AppStart:   0x2000,
			BufferSize: protocol.MaxPayloadSize,
		},
		Host: Host{
			ChunkSize:       protocol.MaxSendDataSize,
			Retries:         3,
			VerifyEachChunk: true,
		},
	}
}

// Load reads the configuration file at path over the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are an error.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that are not checked again by the packages
// they configure.
func (c Config) Validate() error {
	if _, err := parseByteOrder(c.Link.ByteOrder); err != nil {
		return err
	}
	if c.Link.Baud <= 0 {
		return fmt.Errorf("link.baud must be positive, got %d", c.Link.Baud)
	}
	if c.Device.BufferSize <= 0 || c.Device.BufferSize > protocol.MaxPayloadSize {
		return fmt.Errorf("device.buffer_size must be 1..%d, got %d", protocol.MaxPayloadSize, c.Device.BufferSize)
	}
	if c.Host.ChunkSize <= 0 || c.Host.ChunkSize > protocol.MaxSendDataSize {
		return fmt.Errorf("host.chunk_size must be 1..%d, got %d", protocol.MaxSendDataSize, c.Host.ChunkSize)
	}
	if c.Host.ChunkSize+1 > c.Device.BufferSize {
		return fmt.Errorf("host.chunk_size %d does not fit device.buffer_size %d (needs chunk_size+1)",
			c.Host.ChunkSize, c.Device.BufferSize)
	}
	if c.Host.Retries < 0 {
		return fmt.Errorf("host.retries must not be negative, got %d", c.Host.Retries)
	}
	return nil
}

// Order returns the configured wire byte order.
func (l Link) Order() binary.ByteOrder {
	order, err := parseByteOrder(l.ByteOrder)
	if err != nil {
		return protocol.DefaultByteOrder
	}
	return order
}

func parseByteOrder(s string) (binary.ByteOrder, error) {
	switch strings.ToLower(s) {
	case "", "big":
		return binary.BigEndian, nil
	case "little":
		return binary.LittleEndian, nil
	default:
		return nil, fmt.Errorf("link.byte_order must be big or little, got %q", s)
	}
}

// Marshal encodes c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
