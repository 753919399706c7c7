package config

import "net"

// BasicService is used as a simple base for services like Pprof or
// Prometheus monitoring.
type BasicService struct {
	Enabled bool   `yaml:"Enabled"`
	Address string `yaml:"Address"`
	Port    string `yaml:"Port"`
}

// Addr returns the bind address in the form of "address:port".
func (s BasicService) Addr() string {
	return net.JoinHostPort(s.Address, s.Port)
}
