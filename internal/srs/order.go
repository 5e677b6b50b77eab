package srs

import (
	"encoding"
	"fmt"
)

// Order decides how a selected session is arranged.
type Order int

const (
	OrderRandom Order = iota
	OrderDifficulty
	OrderChronological
)

var orderNames = [...]string{OrderRandom: "random", OrderDifficulty: "difficulty", OrderChronological: "chronological"}

var (
	_ encoding.TextMarshaler   = Order(0)
	_ encoding.TextUnmarshaler = (*Order)(nil)
)

func (o Order) IsValid() bool {
	return o >= OrderRandom && o <= OrderChronological
}

func (o Order) String() string {
	if o.IsValid() {
		return orderNames[o]
	}
	return fmt.Sprintf("Order(%d)", int(o))
}

// ParseOrder accepts the lowercase order names.
func ParseOrder(name string) (Order, error) {
	for i, n := range orderNames {
		if n == name {
			return Order(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown order %q", ErrInvalidOptions, name)
}

func (o Order) MarshalText() ([]byte, error) {
	if !o.IsValid() {
		return nil, fmt.Errorf("%w: order %d", ErrInvalidOptions, int(o))
	}
	return []byte(orderNames[o]), nil
}

func (o *Order) UnmarshalText(text []byte) error {
	v, err := ParseOrder(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}
