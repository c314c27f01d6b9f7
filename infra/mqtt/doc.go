// Package mqtt publishes Home Assistant MQTT device discovery, availability
// and per-cycle sensor states using Eclipse Paho.
package mqtt
