package entity

import (
	"fmt"
	"strconv"
	"strings"
)

// DecimalValue parses the value as a money amount
func (c SystemConfig) DecimalValue() (Money, error) {
	return ParseMoney(c.Value)
}

// IntValue parses the value as a base-10 integer
func (c SystemConfig) IntValue() (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(c.Value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q: %w", c.Value, err)
	}
	return v, nil
}

// BoolValue accepts true/1/yes/on and false/0/no/off, case-insensitively
func (c SystemConfig) BoolValue() (bool, error) {
	switch strings.ToLower(strings.TrimSpace(c.Value)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", c.Value)
	}
}
