package firmware

import (
	"encoding/json"
	"fmt"

	"fpgacnc/regmap"
	"fpgacnc/tinycompress"
)

// Dictionary is the self-description a board serves over the identify
// command. The driver can run from the peripheral counts alone; the
// dictionary exists so hosts can double-check their configuration against
// the firmware actually flashed, and so debug tooling can name registers.
type Dictionary struct {
	BoardName      string               `json:"board_name"`
	ClockFrequency uint32               `json:"clock_frequency"`
	Counts         DictionaryCounts     `json:"counts"`
	Registers      []DictionaryRegister `json:"registers"`
}

// DictionaryCounts mirrors the peripheral counts the register layout is
// derived from.
type DictionaryCounts struct {
	GPIOIn   int `json:"gpio_in"`
	GPIOOut  int `json:"gpio_out"`
	PWMs     int `json:"pwm"`
	Stepgens int `json:"stepgen"`
	Encoders int `json:"encoder"`
}

// DictionaryRegister describes one register of the map.
type DictionaryRegister struct {
	Name  string `json:"name"`
	Addr  int    `json:"addr"`
	Words int    `json:"words"`
	Write bool   `json:"write"`
}

// BuildDictionary assembles the dictionary for a configuration and its
// generated map.
func BuildDictionary(config *BoardConfig, m *regmap.Map) *Dictionary {
	d := &Dictionary{
		BoardName:      config.BoardName,
		ClockFrequency: config.ClockFrequency,
		Counts: DictionaryCounts{
			GPIOIn:   len(config.GPIOIn),
			GPIOOut:  len(config.GPIOOut),
			PWMs:     len(config.PWM),
			Stepgens: len(config.Stepgen),
			Encoders: len(config.Encoders),
		},
	}
	for _, r := range m.Registers() {
		d.Registers = append(d.Registers, DictionaryRegister{
			Name:  r.Name,
			Addr:  r.Addr,
			Words: r.Words,
			Write: r.Dir == regmap.Write,
		})
	}
	return d
}

// Encode serializes and compresses the dictionary for the identify command.
func (d *Dictionary) Encode() ([]byte, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("firmware: encode dictionary: %w", err)
	}
	return tinycompress.Compress(raw), nil
}

// DecodeDictionary parses identify data fetched from a board.
func DecodeDictionary(data []byte) (*Dictionary, error) {
	raw, err := tinycompress.Decompress(data)
	if err != nil {
		return nil, fmt.Errorf("firmware: decode dictionary: %w", err)
	}
	var d Dictionary
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("firmware: decode dictionary: %w", err)
	}
	return &d, nil
}
