// Package button drives the illuminated arcade buttons: an LED output and a
// push button input wired to ground.
package button

import (
	"fmt"

	"github.com/cjeanneret/photobooth/internal/debug"
	"github.com/cjeanneret/photobooth/internal/hw/gpio"
)

// IlluminatedButton is one physical button with its built-in LED.
type IlluminatedButton struct {
	gpio      gpio.Driver
	name      string
	ledPin    int
	buttonPin int
	lit       bool
}

// NewIlluminatedButton configures the LED pin as an output (switched off) and
// the button pin as a pulled-up input with falling-edge detection.
func NewIlluminatedButton(g gpio.Driver, name string, ledPin, buttonPin int) (*IlluminatedButton, error) {
	if err := g.SetupPin(ledPin, gpio.Output); err != nil {
		return nil, fmt.Errorf("setup %s led pin %d: %w", name, ledPin, err)
	}
	if err := g.WritePin(ledPin, gpio.Low); err != nil {
		return nil, fmt.Errorf("switch off %s led: %w", name, err)
	}
	if err := g.SetupButton(buttonPin); err != nil {
		return nil, fmt.Errorf("setup %s button pin %d: %w", name, buttonPin, err)
	}
	debug.Verbose("Button %s ready (led=%d, button=%d)", name, ledPin, buttonPin)

	return &IlluminatedButton{
		gpio:      g,
		name:      name,
		ledPin:    ledPin,
		buttonPin: buttonPin,
	}, nil
}

// SetLed switches the button light.
func (b *IlluminatedButton) SetLed(on bool) error {
	if err := b.gpio.WritePin(b.ledPin, gpio.Level(on)); err != nil {
		return fmt.Errorf("%s led: %w", b.name, err)
	}
	b.lit = on
	return nil
}

// Lit reports the last state written with SetLed.
func (b *IlluminatedButton) Lit() bool {
	return b.lit
}

// Name returns the label given at construction.
func (b *IlluminatedButton) Name() string {
	return b.name
}

// ButtonPin returns the input pin, used to register the button with a Watcher.
func (b *IlluminatedButton) ButtonPin() int {
	return b.buttonPin
}

func (b *IlluminatedButton) String() string {
	return fmt.Sprintf("%s(led=%d, button=%d)", b.name, b.ledPin, b.buttonPin)
}
