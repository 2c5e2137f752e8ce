// Package discovery advertises the daemon on the local network via
// mDNS/DNS-SD so integrations can find it under a fixed instance name
// instead of a hard-coded IP.
package discovery

import (
	"fmt"
	"log"
	"strconv"

	"github.com/grandcat/zeroconf"
)

const (
	serviceType = "_sound-trigger._tcp"
	domain      = "local."
)

// Advertiser registers the daemon as an mDNS service while the network is
// connected, and withdraws it when the link drops.
type Advertiser struct {
	instance string
	port     int
	server   *zeroconf.Server
}

// New creates an Advertiser for the given instance name and HTTP port.
func New(instance string, port int) *Advertiser {
	return &Advertiser{instance: instance, port: port}
}

// Start registers the mDNS service. Calling Start while already
// registered is a no-op.
func (a *Advertiser) Start(defaultPulseMs int64, authEnabled bool) error {
	if a.server != nil {
		return nil
	}

	txt := []string{
		"path=/trigger",
		"default_pulse_ms=" + strconv.FormatInt(defaultPulseMs, 10),
		"auth=" + strconv.FormatBool(authEnabled),
	}

	server, err := zeroconf.Register(a.instance, serviceType, domain, a.port, txt, nil)
	if err != nil {
		return fmt.Errorf("mdns register: %w", err)
	}
	a.server = server
	log.Printf("discovery: advertising %s.%s on port %d", a.instance, serviceType, a.port)
	return nil
}

// Stop withdraws the mDNS registration. Safe to call when not registered.
func (a *Advertiser) Stop() {
	if a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
	log.Printf("discovery: advertisement withdrawn")
}
