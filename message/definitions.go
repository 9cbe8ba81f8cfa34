package message

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ryansname/sbox-sim/canbus"
)

// Definition describes a constant message loaded from a YAML file, used for
// frames captured from a real car whose meaning is not known yet
type Definition struct {
	ID   string `yaml:"id"`   // hex, e.g. "0x5B3"
	Name string `yaml:"name"` // optional
	Data string `yaml:"data"` // hex bytes, optionally comma separated
	Hz   int    `yaml:"hz"`
}

type definitionsFile struct {
	Messages []Definition `yaml:"messages"`
}

// ParseDefinitions reads a YAML document of the form
//
//	messages:
//	  - id: "0x5B3"
//	    data: "40,10,FE,30,00,00,00,00"
//	    hz: 5
func ParseDefinitions(r io.Reader) ([]*Periodic, error) {
	var file definitionsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode message definitions: %w", err)
	}

	msgs := make([]*Periodic, 0, len(file.Messages))
	for i, d := range file.Messages {
		m, err := d.build()
		if err != nil {
			return nil, fmt.Errorf("message definition %d: %w", i+1, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// LoadDefinitions reads message definitions from a YAML file
func LoadDefinitions(path string) ([]*Periodic, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseDefinitions(f)
}

func (d Definition) build() (*Periodic, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(d.ID), 0, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q: %w", d.ID, err)
	}
	// Captured frames are all standard IDs, a larger value is a typo rather than a 29-bit frame
	if id > canbus.MaxStdID {
		return nil, fmt.Errorf("id %q: %w (max %#x)", d.ID, canbus.ErrInvalidID, canbus.MaxStdID)
	}

	cleaned := strings.NewReplacer(",", "", " ", "").Replace(d.Data)
	data, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("invalid data %q: %w", d.Data, err)
	}

	name := d.Name
	if name == "" {
		name = "Mystery"
	}
	return New(uint32(id), name, data, d.Hz, nil)
}
