// Package homeassistant reads charger and household sensors by rendering
// Home Assistant templates and drives the charger through service calls.
// Mock provides the same surface without a Home Assistant instance.
package homeassistant
