//go:build rp2350

package main

const deviceID = "pico2"
